package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveVote(t *testing.T) {
	m := New()

	m.ObserveVote(ResultApplied, time.Now())
	m.ObserveVote(ResultApplied, time.Now())
	m.ObserveVote(ResultConflict, time.Now())
	m.VoteRetried()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.votesTotal.WithLabelValues(ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.votesTotal.WithLabelValues(ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.voteRetries))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVote(ResultApplied, time.Now())
		m.VoteRetried()
		m.ObserveAccept(ResultApplied)
		m.SubscriberAdded()
		m.SubscriberRemoved()
	})
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/questions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/questions/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/questions/:id", "200")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stackit_http_requests_total")
}
