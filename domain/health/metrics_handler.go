package health

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/domain/streams"
)

// MetricsHandler exposes the stream matcher's own counters over HTTP.
// The Prometheus collectors are registered with the default registry;
// no /metrics route is served for them.
type MetricsHandler struct {
	matcher *streams.Matcher
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(matcher *streams.Matcher) *MetricsHandler {
	return &MetricsHandler{matcher: matcher}
}

// StreamMetrics summarizes the live stream matcher state.
type StreamMetrics struct {
	Subscribers          int   `json:"subscribers"`
	NotificationsHandled int64 `json:"notifications_handled"`
}

// StreamMetricsHandler returns the stream matcher's subscriber count and
// lifetime notification total.
func (h *MetricsHandler) StreamMetricsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, StreamMetrics{
		Subscribers:          h.matcher.SubscriberCount(),
		NotificationsHandled: h.matcher.TotalProcessed(),
	})
}
