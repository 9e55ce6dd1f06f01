package filter

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/trellis/pkg/filter"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/Ramsey-B/trellis/pkg/utils"
	"github.com/labstack/echo/v4"
)

const (
	ModeValue = "value"
	ModeItem  = "item"
)

// Register registers filter routes
func Register(g *echo.Group) {
	g.POST("/evaluate", Evaluate)
}

// EvaluateRequest tests Filter against Value. In item mode each condition's
// field path is resolved inside Value first.
type EvaluateRequest struct {
	Mode   string              `json:"mode" validate:"omitempty,oneof=value item"`
	Value  any                 `json:"value"`
	Filter *models.FilterGroup `json:"filter" validate:"required"`
}

type EvaluateResponse struct {
	Matched bool `json:"matched"`
}

func Evaluate(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "filter_handler.Evaluate")
	defer span.End()

	req, err := utils.BindRequest[EvaluateRequest](c)
	if err != nil {
		return err
	}

	if err := filter.Validate(req.Filter); err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	matched := filter.Evaluate(req.Value, req.Filter)
	if req.Mode == ModeItem {
		matched = filter.MatchItem(req.Value, req.Filter)
	}

	return c.JSON(http.StatusOK, EvaluateResponse{Matched: matched})
}
