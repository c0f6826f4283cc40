package streams

import (
	"encoding/json"
	"log/slog"
	"time"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/domain/useraccess"
	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/auth"
	"github.com/autumndb/autumndb/pkg/logger"
	"github.com/autumndb/autumndb/pkg/sse"
)

// keepAliveInterval bounds how long a subscriber's connection can sit
// idle before an intermediary (proxy, load balancer) decides it is dead
// and closes it out from under the client.
const keepAliveInterval = 15 * time.Second

// Handler serves the stream external interface over HTTP, subscribing a
// schema to the matcher and relaying Subscriber.Events as Server-Sent
// Events for as long as the client stays connected.
type Handler struct {
	matcher *Matcher
	wirer   *Wirer
	masker  useraccess.Masker
	cfg     *config.Config
	log     *slog.Logger
}

// NewHandler builds the stream Handler.
func NewHandler(matcher *Matcher, wirer *Wirer, masker useraccess.Masker, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		matcher: matcher,
		wirer:   wirer,
		masker:  masker,
		cfg:     cfg,
		log:     log.With(logger.Scope("streams.handler")),
	}
}

// requestBody is the wire shape of POST /api/stream's body: a schema
// whose matches the subscriber should be notified about, mirroring the
// schema half of domain/query's (select, schema, options) request.
type requestBody struct {
	Schema any `json:"schema"`
}

// streamEvent is the wire shape of each SSE "data:" payload.
type streamEvent struct {
	Type       string `json:"type"`
	ContractID string `json:"id"`
}

// streamErrorEvent is the wire shape of a requery failure reported on
// the subscriber's error channel, per spec's "stream errors never
// terminate the subscriber" invariant.
type streamErrorEvent struct {
	Message string `json:"message"`
}

// Subscribe handles POST /api/stream: it masks and compiles the
// schema, registers a Subscriber with the matcher, and streams its
// Events as SSE until the client disconnects.
func (h *Handler) Subscribe(c echo.Context) error {
	var body requestBody
	if err := c.Bind(&body); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	schemaJSON, err := json.Marshal(body.Schema)
	if err != nil {
		return apperror.NewSchemaInvalid(err)
	}

	user := auth.GetUser(c)
	role := ""
	if user != nil {
		role = user.Role
	}

	schema, err := h.maskedSchema(c, schemaJSON, role)
	if err != nil {
		return err
	}

	sub := h.wirer.BuildSubscriber(schema, h.cfg.Stream.BufferSize)
	h.matcher.Register(sub)
	defer h.matcher.Unregister(sub.ID)

	w := c.Response().Writer
	writer := sse.NewWriter(w)
	if err := writer.Start(); err != nil {
		return apperror.NewInternal("failed to start stream", err)
	}

	ctx := c.Request().Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			payload := streamEvent{Type: string(ev.Kind), ContractID: ev.ContractID.String()}
			if err := writer.WriteEvent(string(ev.Kind), payload); err != nil {
				h.log.Warn("write sse event failed", slog.Any("error", err))
				return nil
			}

		case err := <-sub.Errors:
			if err := writer.WriteEvent("error", streamErrorEvent{Message: err.Error()}); err != nil {
				h.log.Warn("write sse error event failed", slog.Any("error", err))
				return nil
			}

		case <-ticker.C:
			if err := writer.WriteComment("keep-alive"); err != nil {
				return nil
			}
		}
	}
}

func (h *Handler) maskedSchema(c echo.Context, schemaJSON []byte, role string) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{}
	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, schema); err != nil {
			return nil, apperror.NewSchemaInvalid(err)
		}
	}

	masked, err := h.masker.Mask(c.Request().Context(), schema, role)
	if err != nil {
		return nil, err
	}
	return masked, nil
}
