package streams_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/autumndb/autumndb/internal/testutil"
)

type StreamSuite struct {
	testutil.BaseSuite
}

func TestStreamSuite(t *testing.T) {
	suite.Run(t, new(StreamSuite))
}

func (s *StreamSuite) TestSubscribeRequiresAuth() {
	resp := s.POST("/api/stream", testutil.WithJSONBody(map[string]any{
		"schema": map[string]any{"type": "object"},
	}))
	s.Equal(http.StatusUnauthorized, resp.Code)
}

func (s *StreamSuite) TestSubscribeRejectsInvalidSchema() {
	resp := s.POST("/api/stream",
		testutil.WithAuth(testutil.AdminToken),
		testutil.WithHeader("Content-Type", "application/json"),
		testutil.WithBody(`{"schema": "not-an-object-or-schema"`),
	)
	s.Equal(http.StatusBadRequest, resp.Code)
}
