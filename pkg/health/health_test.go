package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, c *Checker, path string) (int, Response) {
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestChecker(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	t.Run("should always be live", func(t *testing.T) {
		code, body := probe(t, NewChecker("test"), "/health/live")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, StatusHealthy, body.Status)
	})

	t.Run("should not be ready before startup finishes", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", healthy)

		code, body := probe(t, c, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "startup")
	})

	t.Run("should be ready when every check passes", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", healthy)
		c.AddCheck("redis", healthy)
		c.SetReady(true)

		code, body := probe(t, c, "/health/ready")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, StatusHealthy, body.Checks["redis"].Status)
	})

	t.Run("should report the failing dependency", func(t *testing.T) {
		c := NewChecker("test")
		c.AddCheck("database", healthy)
		c.AddCheck("redis", failing)
		c.SetReady(true)

		code, body := probe(t, c, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, StatusUnhealthy, body.Status)
		assert.Equal(t, "connection refused", body.Checks["redis"].Message)
	})
}

func TestRequireReady(t *testing.T) {
	c := NewChecker("test")
	e := echo.New()
	e.GET("/mappings", func(ctx echo.Context) error { return ctx.NoContent(http.StatusNoContent) }, c.RequireReady())

	call := func() int {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mappings", nil))
		return rec.Code
	}

	t.Run("should reject requests while starting", func(t *testing.T) {
		assert.Equal(t, http.StatusServiceUnavailable, call())
	})

	t.Run("should pass requests once ready", func(t *testing.T) {
		c.SetReady(true)
		assert.Equal(t, http.StatusNoContent, call())
	})
}
