package middleware

import (
	"github.com/Ramsey-B/trellis/pkg/appctx"
	"github.com/labstack/echo/v4"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// TestAuth reads the tenant and user from headers. It is installed only when
// AUTH_ENABLED=false.
func TestAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if tenantID := c.Request().Header.Get(HeaderTenantID); tenantID != "" {
				ctx = appctx.SetTenantID(ctx, tenantID)
			}
			if userID := c.Request().Header.Get(HeaderUserID); userID != "" {
				ctx = appctx.SetUserID(ctx, userID)
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
