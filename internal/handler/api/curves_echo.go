package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"FinCurve/internal/domain/models"
	"FinCurve/internal/usecase"
	"FinCurve/pkg/curve"
	xhttp "FinCurve/pkg/http"
	xlogger "FinCurve/pkg/logger"
)

// CurvesEchoHandler serves the curve registry over HTTP.
type CurvesEchoHandler struct {
	logger   *xlogger.Logger
	registry *usecase.CurveRegistry
	sweeper  *usecase.Sweeper
	jobs     *usecase.SweepJobs
	grid     models.Grid
}

// NewCurvesEchoHandler creates the handler. grid supplies sweep bounds the
// request leaves out.
func NewCurvesEchoHandler(logger *xlogger.Logger, registry *usecase.CurveRegistry, sweeper *usecase.Sweeper, jobs *usecase.SweepJobs, grid models.Grid) *CurvesEchoHandler {
	return &CurvesEchoHandler{logger: logger, registry: registry, sweeper: sweeper, jobs: jobs, grid: grid}
}

func (h *CurvesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/curves", h.List)
	g.PUT("/curves/:name", h.Define)
	g.GET("/curves/:name", h.Describe)
	g.DELETE("/curves/:name", h.Remove)
	g.GET("/curves/:name/rate", h.Rate)
	g.GET("/curves/:name/df", h.DiscountFactor)
	g.GET("/curves/:name/forward", h.Forward)
	g.GET("/curves/:name/sweep", h.Sweep)
	g.POST("/sweeps", h.SubmitSweep)
	g.GET("/sweeps/:id", h.SweepJob)
}

func (h *CurvesEchoHandler) List(c echo.Context) error {
	names, err := h.registry.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "list curves", err)
	}
	if names == nil {
		names = []string{}
	}
	return xhttp.ListResponse(c, names, int64(len(names)))
}

func (h *CurvesEchoHandler) Define(c echo.Context) error {
	req := &models.DefineCurveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cfg, err := curve.ParseConfig(req.Raw)
	if err != nil {
		return h.fail(c, "parse curve", err)
	}
	desc, err := h.registry.Define(c.Request().Context(), req.Name, cfg)
	if err != nil {
		return h.fail(c, "define curve", err)
	}
	return xhttp.SuccessResponse(c, desc)
}

func (h *CurvesEchoHandler) Describe(c echo.Context) error {
	req := &models.CurveNameRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	desc, err := h.registry.Describe(c.Request().Context(), req.Name)
	if err != nil {
		return h.fail(c, "describe curve", err)
	}
	return xhttp.SuccessResponse(c, desc)
}

func (h *CurvesEchoHandler) Remove(c echo.Context) error {
	req := &models.CurveNameRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.registry.Remove(c.Request().Context(), req.Name); err != nil {
		return h.fail(c, "remove curve", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *CurvesEchoHandler) Rate(c echo.Context) error {
	req := &models.PointRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	t, err := xhttp.ParseFloat(req.T)
	if err != nil {
		return xhttp.AppErrorResponse(c, badQuery("t", err))
	}

	res, err := h.registry.Rate(c.Request().Context(), req.Name, t)
	if err != nil {
		return h.fail(c, "rate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CurvesEchoHandler) DiscountFactor(c echo.Context) error {
	req := &models.PointRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	t, err := xhttp.ParseFloat(req.T)
	if err != nil {
		return xhttp.AppErrorResponse(c, badQuery("t", err))
	}

	res, err := h.registry.DiscountFactor(c.Request().Context(), req.Name, t)
	if err != nil {
		return h.fail(c, "discount factor", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CurvesEchoHandler) Forward(c echo.Context) error {
	req := &models.ForwardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := xhttp.ParseFloat(req.From)
	if err != nil {
		return xhttp.AppErrorResponse(c, badQuery("from", err))
	}
	to, err := xhttp.ParseFloat(req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, badQuery("to", err))
	}

	res, err := h.registry.Forward(c.Request().Context(), req.Name, from, to)
	if err != nil {
		return h.fail(c, "forward", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CurvesEchoHandler) Sweep(c echo.Context) error {
	req := &models.SweepRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	grid := h.grid
	var err error
	if grid.From, err = xhttp.ParseFloatDefault(req.From, grid.From); err != nil {
		return xhttp.AppErrorResponse(c, badQuery("from", err))
	}
	if grid.To, err = xhttp.ParseFloatDefault(req.To, grid.To); err != nil {
		return xhttp.AppErrorResponse(c, badQuery("to", err))
	}
	if grid.Step, err = xhttp.ParseFloatDefault(req.Step, grid.Step); err != nil {
		return xhttp.AppErrorResponse(c, badQuery("step", err))
	}

	res, err := h.sweeper.SweepNamed(c.Request().Context(), req.Name, grid)
	if err != nil {
		return h.fail(c, "sweep", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CurvesEchoHandler) SubmitSweep(c echo.Context) error {
	req := &models.SubmitSweepRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	grid := h.grid
	if req.From != nil {
		grid.From = *req.From
	}
	if req.To != nil {
		grid.To = *req.To
	}
	if req.Step != nil {
		grid.Step = *req.Step
	}

	job, err := h.jobs.Submit(c.Request().Context(), req.Names, grid)
	if err != nil {
		return h.fail(c, "submit sweep", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, job)
}

func (h *CurvesEchoHandler) SweepJob(c echo.Context) error {
	req := &models.SweepJobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	job, err := h.jobs.Status(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "sweep job", err)
	}
	return xhttp.SuccessResponse(c, job)
}

func (h *CurvesEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	code := usecase.ErrorCode(err)
	switch code {
	case usecase.CodeNotFound:
		return xhttp.NewAppError(code, "name", err.Error(), http.StatusNotFound).WithError(err)
	case usecase.CodeInvalidDiscountFactor:
		return xhttp.NewAppError(code, "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case usecase.CodeInternal:
		return xhttp.InternalError("internal error").WithError(err)
	}
	return xhttp.NewAppError(code, "", err.Error(), http.StatusBadRequest).WithError(err)
}

func badQuery(field string, err error) *xhttp.AppError {
	return xhttp.NewAppError("ERR_INVALID_QUERY", field, err.Error(), http.StatusBadRequest).WithError(err)
}
