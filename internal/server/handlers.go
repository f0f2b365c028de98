package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/skate-feed/internal/calendar"
	"github.com/pfrederiksen/skate-feed/internal/event"
	"github.com/pfrederiksen/skate-feed/internal/filter"
)

// ErrorResponse is the JSON body of failed requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), RequestID: GetRequestID(c)})
}

// filteredFeed returns the cached feed narrowed by the request's query.
// It writes the error response itself and reports false on failure.
func (s *Server) filteredFeed(c *gin.Context) ([]event.Event, bool) {
	f, err := filter.FromQuery(c.Request.URL.Query(), s.clock.Now(), s.location)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return nil, false
	}

	events, err := s.feed.Get(c.Request.Context())
	if err != nil {
		s.metrics.IncrCounter("http.feed.failure")
		s.fail(c, http.StatusInternalServerError, err)
		return nil, false
	}

	return f.Apply(events), true
}

func (s *Server) handleEvents(c *gin.Context) {
	events, ok := s.filteredFeed(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ToWire(events, s.location))
}

func (s *Server) handleCalendar(c *gin.Context) {
	events, ok := s.filteredFeed(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.GenerateICS(events, s.clock.Now())))
}

func (s *Server) handleClearCache(c *gin.Context) {
	if err := s.feed.Invalidate(c.Request.Context()); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.String(http.StatusOK, "success")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "up",
		"service":  "skate-feed",
		"timezone": s.location.String(),
		"sources":  s.sources,
		"cache":    s.feed.Info(c.Request.Context()),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetSnapshot())
}
