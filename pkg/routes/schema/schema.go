package schema

import (
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	schemasvc "github.com/Ramsey-B/trellis/internal/services/schema"
	"github.com/Ramsey-B/trellis/pkg/appctx"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/Ramsey-B/trellis/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Register registers schema routes
func Register(g *echo.Group) {
	g.POST("/parse", Parse)
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.GET("/:id/fields", GetFields)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
}

// ParseRequest carries a JSON Schema in Document or a YAML schema in YAML.
type ParseRequest struct {
	Name     string          `json:"name"`
	Document json.RawMessage `json:"document"`
	YAML     string          `json:"yaml"`
}

type SchemaRequest struct {
	Name     string          `json:"name" validate:"required"`
	Document json.RawMessage `json:"document" validate:"required"`
}

type UpdateSchemaRequest struct {
	SchemaRequest
	ID string `param:"id" validate:"required"`
}

func Parse(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.Parse")
	defer span.End()

	req, err := utils.BindRequest[ParseRequest](c)
	if err != nil {
		return err
	}

	document := []byte(req.Document)
	if req.YAML != "" {
		document = []byte(req.YAML)
	}
	if len(document) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "document or yaml is required")
	}

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Parse(ctx, document, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.List")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
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
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.Create")
	defer span.End()

	req, err := utils.BindRequest[SchemaRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Create(ctx, models.StoredSchema{
		TenantID: appctx.GetTenantID(ctx),
		Name:     req.Name,
		Document: req.Document,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

func Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.Get")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Get(ctx, appctx.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetFields parses a stored schema into its field tree.
func GetFields(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.GetFields")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.ParseStored(ctx, appctx.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.Update")
	defer span.End()

	req, err := utils.BindRequest[UpdateSchemaRequest](c)
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	result, err := service.Update(ctx, models.StoredSchema{
		ID:       req.ID,
		TenantID: appctx.GetTenantID(ctx),
		Name:     req.Name,
		Document: req.Document,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "schema_handler.Delete")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*schemasvc.Service](ctx)
	if err != nil {
		return err
	}

	if err := service.Delete(ctx, appctx.GetTenantID(ctx), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
