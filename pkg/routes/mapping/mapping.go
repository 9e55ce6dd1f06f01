package mapping

import (
	"io"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	mappingsvc "github.com/Ramsey-B/trellis/internal/services/mapping"
	"github.com/Ramsey-B/trellis/pkg/appctx"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/Ramsey-B/trellis/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Register registers stored mapping routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.POST("/test", Test)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
	g.GET("/:id/export", Export)
	g.POST("/:id/import", Import)
	g.POST("/:id/execute", Execute)
}

type MappingRequest struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	SourceSchemaID string          `json:"source_schema_id"`
	TargetSchemaID string          `json:"target_schema_id"`
	Tags           []string        `json:"tags"`
	Document       models.Document `json:"document"`
}

type UpdateMappingRequest struct {
	MappingRequest
	ID      string `param:"id" validate:"required"`
	Version int    `json:"version" validate:"required,min=1"`
}

type ExecuteRequest struct {
	ID   string `param:"id" validate:"required"`
	Data any    `json:"data"`
}

type TestRequest struct {
	Document models.Document `json:"document"`
	Data     any             `json:"data"`
}

type ExecuteResponse struct {
	Data map[string]any `json:"data"`
}

func (r MappingRequest) toStoredMapping(tenantID string) models.StoredMapping {
	return models.StoredMapping{
		TenantID:       tenantID,
		Name:           r.Name,
		Description:    r.Description,
		SourceSchemaID: r.SourceSchemaID,
		TargetSchemaID: r.TargetSchemaID,
		Tags:           r.Tags,
		Document:       r.Document,
	}
}

func List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.List")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.List(ctx, appctx.GetTenantID(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Create")
	defer span.End()

	req, err := utils.BindRequest[MappingRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Create(ctx, req.toStoredMapping(appctx.GetTenantID(ctx)))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

func Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Get")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Get(ctx, appctx.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Update")
	defer span.End()

	req, err := utils.BindRequest[UpdateMappingRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	stored := req.toStoredMapping(appctx.GetTenantID(ctx))
	stored.ID = req.ID
	stored.Version = req.Version

	result, err := service.Update(ctx, stored)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Delete")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	if err := service.Delete(ctx, appctx.GetTenantID(ctx), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Export returns the portable document as the raw response body so it can
// be posted back to Import unchanged.
func Export(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Export")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	exported, err := service.Export(ctx, appctx.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(exported))
}

func Import(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Import")
	defer span.End()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Import(ctx, appctx.GetTenantID(ctx), c.Param("id"), string(body))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Execute(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Execute")
	defer span.End()

	req, err := utils.BindRequest[ExecuteRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Execute(ctx, appctx.GetTenantID(ctx), req.ID, req.Data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecuteResponse{Data: result})
}

func Test(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "mapping_handler.Test")
	defer span.End()

	req, err := utils.BindRequest[TestRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*mappingsvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Test(ctx, appctx.GetTenantID(ctx), req.Document, req.Data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ExecuteResponse{Data: result})
}
