package tenant

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/labstack/echo/v4"
)

// Register registers tenant routes
func Register(g *echo.Group) {
	g.DELETE("/tenant/:tenant_id", deleteTenantData)
}

type DeleteResponse struct {
	Message  string `json:"message"`
	TenantID string `json:"tenant_id"`
	Mappings int64  `json:"mappings"`
	Schemas  int64  `json:"schemas"`
}

// deleteTenantData hard deletes every stored mapping and schema of a tenant.
// It is only mounted when test auth is enabled.
func deleteTenantData(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := c.Param("tenant_id")
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant_id is required")
	}

	ctx, db, err := ectoinject.GetContext[database.DB](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get database")
	}

	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get logger")
	}

	logger.WithContext(ctx).WithField("tenant_id", tenantID).Info("Deleting all data for tenant")

	ctx, tx, err := db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	mappingsResult, err := tx.ExecContext(ctx, "DELETE FROM mappings WHERE tenant_id = $1", tenantID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to delete mappings")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete mappings")
	}
	mappingsCount, _ := mappingsResult.RowsAffected()

	schemasResult, err := tx.ExecContext(ctx, "DELETE FROM schemas WHERE tenant_id = $1", tenantID)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to delete schemas")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete schemas")
	}
	schemasCount, _ := schemasResult.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"mappings":  mappingsCount,
		"schemas":   schemasCount,
	}).Info("Tenant data deleted")

	return c.JSON(http.StatusOK, DeleteResponse{
		Message:  "tenant data deleted",
		TenantID: tenantID,
		Mappings: mappingsCount,
		Schemas:  schemasCount,
	})
}
