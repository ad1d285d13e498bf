package runs

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/pipeline"
	"github.com/Ramsey-B/sorrel/pkg/utils"
)

// Runner performs reconciliation runs
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*models.Report, error)
	Collection() string
}

// History reads stored run reports
type History interface {
	List(ctx context.Context, collection string, limit int) ([]models.RunSummary, error)
	Get(ctx context.Context, runID string) (*models.Report, error)
}

// CreateRunRequest starts a run
type CreateRunRequest struct {
	Mode      models.RunMode `json:"mode" validate:"omitempty,oneof=live sample dry_run"`
	MaxGroups *int           `json:"max_groups,omitempty" validate:"omitempty,min=0,max=10000"`
	Filter    map[string]any `json:"filter,omitempty"`
}

// Handler serves the run endpoints
type Handler struct {
	runner           Runner
	history          History
	defaultMaxGroups int
	logger           ectologger.Logger
}

// NewHandler creates a runs handler. defaultMaxGroups applies to sample runs without max_groups.
func NewHandler(runner Runner, history History, defaultMaxGroups int, logger ectologger.Logger) *Handler {
	return &Handler{
		runner:           runner,
		history:          history,
		defaultMaxGroups: defaultMaxGroups,
		logger:           logger,
	}
}

// Register registers run routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.CreateRun)
	g.GET("", h.ListRuns)
	g.GET("/:id", h.GetRun)
}

// CreateRun runs a reconciliation synchronously and returns its report
func (h *Handler) CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[CreateRunRequest](c)
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		Mode:      req.Mode,
		MaxGroups: h.defaultMaxGroups,
	}
	if req.MaxGroups != nil {
		opts.MaxGroups = *req.MaxGroups
	}
	if len(req.Filter) > 0 {
		opts.Filter = &models.QueryFilter{Properties: req.Filter}
	}

	report, err := h.runner.Run(ctx, opts)
	if report == nil {
		if err == nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "run produced no report")
		}
		return err
	}
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Warn("Run finished with errors")
	}
	if report.Status == models.RunStatusFailed {
		return c.JSON(http.StatusBadGateway, report)
	}
	return c.JSON(http.StatusOK, report)
}

// ListRuns lists recent runs of the pipeline's collection unless ?collection= is given
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	collection := c.QueryParam("collection")
	if collection == "" {
		collection = h.runner.Collection()
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid limit %q", raw)
		}
		limit = n
	}

	runs, err := h.history.List(ctx, collection, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRun returns a full run report
func (h *Handler) GetRun(c echo.Context) error {
	report, err := h.history.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
