package query

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/auth"
)

// Handler serves the query external interface over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler builds the query Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// requestBody is the wire shape of POST /api/query's body: the (select,
// schema, options) tuple from spec.md §6, minus the role, which is
// always derived from the authenticated principal.
type requestBody struct {
	Select  map[string]any `json:"select"`
	Schema  any            `json:"schema"`
	Options Options        `json:"options"`
}

// Query handles POST /api/query.
func (h *Handler) Query(c echo.Context) error {
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

	result, err := h.svc.Run(c.Request().Context(), Input{
		Select:  body.Select,
		Schema:  schemaJSON,
		Options: body.Options,
		Role:    role,
	})
	if err != nil {
		status, resp := apperror.ToHTTPError(err)
		return c.JSON(status, resp)
	}

	return c.JSON(http.StatusOK, result)
}
