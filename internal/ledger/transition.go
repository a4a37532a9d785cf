package ledger

import "github.com/emilythestrangee/stackit/backend/internal/models"

// Transition applies a requested vote to the voter's current polarity. It
// returns the new polarity and the changes to the answer's upvote and
// downvote counters. Repeating the current polarity retracts the vote.
func Transition(current, requested models.Polarity) (next models.Polarity, up, down int) {
	switch current {
	case models.PolarityUpvote:
		if requested == models.PolarityUpvote {
			return models.PolarityNone, -1, 0
		}
		return models.PolarityDownvote, -1, 1
	case models.PolarityDownvote:
		if requested == models.PolarityDownvote {
			return models.PolarityNone, 0, -1
		}
		return models.PolarityUpvote, 1, -1
	default:
		if requested == models.PolarityUpvote {
			return models.PolarityUpvote, 1, 0
		}
		return models.PolarityDownvote, 0, 1
	}
}
