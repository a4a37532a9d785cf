package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func TestTransition(t *testing.T) {
	none, up, down := models.PolarityNone, models.PolarityUpvote, models.PolarityDownvote

	tests := []struct {
		current, requested, next models.Polarity
		dUp, dDown               int
	}{
		{none, up, up, 1, 0},
		{none, down, down, 0, 1},
		{up, up, none, -1, 0},
		{down, down, none, 0, -1},
		{up, down, down, -1, 1},
		{down, up, up, 1, -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"->"+string(tt.requested), func(t *testing.T) {
			next, dUp, dDown := Transition(tt.current, tt.requested)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.dUp, dUp)
			assert.Equal(t, tt.dDown, dDown)
		})
	}
}

func TestTransition_RepeatIsNetZero(t *testing.T) {
	for _, p := range []models.Polarity{models.PolarityUpvote, models.PolarityDownvote} {
		first, up1, down1 := Transition(models.PolarityNone, p)
		second, up2, down2 := Transition(first, p)
		assert.Equal(t, models.PolarityNone, second)
		assert.Zero(t, up1+up2)
		assert.Zero(t, down1+down2)
	}
}
