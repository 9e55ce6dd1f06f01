package filter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	e.Use(middleware.Context())
	Register(e.Group("/filters"))
	return e
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		expected bool
	}{
		{
			name:     "should match a value against a condition",
			body:     `{"value":"paid","filter":{"id":"g","logic":"and","children":[{"type":"condition","id":"c","operator":"equals","value":"paid"}]}}`,
			status:   http.StatusOK,
			expected: true,
		},
		{
			name:     "should resolve condition fields inside an item",
			body:     `{"mode":"item","value":{"total":50},"filter":{"id":"g","logic":"and","children":[{"type":"condition","id":"c","field":"total","operator":"greaterThan","value":100}]}}`,
			status:   http.StatusOK,
			expected: false,
		},
		{
			name:   "should reject unknown operators",
			body:   `{"value":"x","filter":{"id":"g","logic":"and","children":[{"type":"condition","id":"c","operator":"looksLike","value":"x"}]}}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "should require a filter",
			body:   `{"value":"x"}`,
			status: http.StatusBadRequest,
		},
	}

	e := newServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/filters/evaluate", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var resp EvaluateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expected, resp.Matched)
		})
	}
}
