package transformation

import (
	"net/http"

	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/Ramsey-B/trellis/pkg/transform"
	"github.com/Ramsey-B/trellis/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Register registers transformation routes
func Register(g *echo.Group) {
	g.GET("", Catalog)
	g.POST("/preview", Preview)
}

// PreviewRequest runs a pipeline against a sample source instance. Without
// SourceFields, Source itself is the single input value.
type PreviewRequest struct {
	Source          any                         `json:"source"`
	SourceFields    []models.FieldNode          `json:"source_fields"`
	Transformations []models.TransformationStep `json:"transformations" validate:"dive"`
}

type PreviewResponse struct {
	Result string `json:"result"`
}

func Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, transform.AvailableTransformations())
}

func Preview(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "transformation_handler.Preview")
	defer span.End()

	req, err := utils.BindRequest[PreviewRequest](c)
	if err != nil {
		return err
	}

	_, evaluator, err := ectoinject.GetContext[*transform.Evaluator](ctx)
	if err != nil {
		return err
	}

	var result string
	if len(req.SourceFields) == 0 {
		result = evaluator.ApplyTransformationsToValues([]any{req.Source}, nil, req.Transformations)
	} else {
		result = evaluator.ApplyTransformations(req.Source, req.SourceFields, req.Transformations)
	}
	return c.JSON(http.StatusOK, PreviewResponse{Result: result})
}
