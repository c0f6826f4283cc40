package query_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/autumndb/autumndb/internal/testutil"
)

type QuerySuite struct {
	testutil.BaseSuite
}

func TestQuerySuite(t *testing.T) {
	suite.Run(t, new(QuerySuite))
}

func (s *QuerySuite) TestQueryReturnsMatchingContracts() {
	ctx := s.Ctx
	db := s.DB()

	_, err := testutil.CreateTestContract(ctx, db, testutil.TestContract{
		Slug: "widget",
		Type: "widget",
		Name: "Red Widget",
		Data: map[string]any{"color": "red"},
	})
	s.Require().NoError(err)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slug": map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
		},
	}
	schemaJSON, err := json.Marshal(schema)
	s.Require().NoError(err)

	body := map[string]any{
		"select": map[string]any{"slug": true, "name": true},
		"schema": json.RawMessage(schemaJSON),
	}

	resp := s.POST("/api/query", testutil.WithAuth(testutil.AdminToken), testutil.WithJSONBody(body))
	s.Equal(http.StatusOK, resp.Code)

	var rows []map[string]any
	s.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &rows))
	s.Len(rows, 1)
	s.Equal("widget", rows[0]["slug"])
}

func (s *QuerySuite) TestQueryRequiresAuth() {
	resp := s.POST("/api/query", testutil.WithJSONBody(map[string]any{
		"select": map[string]any{},
		"schema": map[string]any{"type": "object"},
	}))
	s.Equal(http.StatusUnauthorized, resp.Code)
}
