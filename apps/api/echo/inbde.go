package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
)

const staleStatsWarning = `199 - "mapping saved but coverage statistics could not be refreshed"`

type (
	MessageResponse struct {
		Message string `json:"message"`
	}

	InitializeResponse struct {
		Message  string `json:"message"`
		Inserted int    `json:"inserted"`
	}

	BulkMappingRequest struct {
		Suggestions []mapping.Suggestion `json:"suggestions"`
		// Threshold defaults to the configured AI suggestion threshold.
		Threshold *float64 `json:"threshold"`
	}

	RecalculateRequest struct {
		CourseID string `json:"course_id"`
		Async    bool   `json:"async"`
	}

	RecalculateResponse struct {
		Message string          `json:"message"`
		Report  coverage.Report `json:"report"`
	}
)

type inbdeApi struct {
	competencySvc    *competency.Service
	mappingSvc       *mapping.Service
	coverageSvc      *coverage.Service
	defaultThreshold float64
}

func registerInbdeAPI(g *echo.Group, conf *core.Config, deps *Deps) {
	api := inbdeApi{
		competencySvc:    deps.CompetencySvc,
		mappingSvc:       deps.MappingSvc,
		coverageSvc:      deps.CoverageSvc,
		defaultThreshold: conf.Coverage.SuggestionThreshold,
	}

	ig := g.Group("/inbde")

	// competency catalog
	ig.POST("/initialize", api.initialize)
	ig.GET("/foundation-knowledge", api.listFoundationKnowledge)
	ig.GET("/clinical-content", api.listClinicalContent)

	// coverage matrix
	ig.GET("/mapping-matrix/:tenantId", api.matrix)
	ig.GET("/mapping-matrix/:tenantId/cells/:fkId/:ccId", api.cellMappings)

	// content mappings
	mg := ig.Group("/content-mapping")
	mg.POST("", api.createMapping)
	mg.POST("/bulk", api.createMappings)
	mg.GET("/:id", api.retrieveMapping)
	mg.PATCH("/:id", api.updateMapping)
	mg.DELETE("/:id", api.destroyMapping)

	// recalculation
	ig.POST("/recalculate-stats/:tenantId", api.recalculate)
	ig.GET("/recalculate-stats/jobs/:jobId", api.retrieveJob)
}

// warnIfStale flags responses whose mutation succeeded while the statistics refresh did not.
func warnIfStale(ctx echo.Context, recalcErr error) {
	if recalcErr != nil {
		ctx.Response().Header().Set("Warning", staleStatsWarning)
	}
}

// Handlers

func (api *inbdeApi) initialize(ctx echo.Context) error {
	inserted, err := api.competencySvc.Seed(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "seeding competency catalog")
	}
	return ctx.JSON(http.StatusOK, InitializeResponse{
		Message:  "INBDE competency catalog initialized",
		Inserted: inserted,
	})
}

func (api *inbdeApi) listFoundationKnowledge(ctx echo.Context) error {
	areas, err := api.competencySvc.ListFoundationKnowledge(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing foundation knowledge areas")
	}
	return ctx.JSON(http.StatusOK, areas)
}

func (api *inbdeApi) listClinicalContent(ctx echo.Context) error {
	areas, err := api.competencySvc.ListClinicalContent(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing clinical content areas")
	}
	return ctx.JSON(http.StatusOK, areas)
}

func (api *inbdeApi) matrix(ctx echo.Context) error {
	scope := coverage.CourseScope(ctx.Param("tenantId"), ctx.QueryParam("course_id"))
	matrix, err := api.coverageSvc.GetMatrix(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "building mapping matrix")
	}
	return ctx.JSON(http.StatusOK, matrix)
}

func (api *inbdeApi) cellMappings(ctx echo.Context) error {
	mcs, err := api.mappingSvc.ListForCell(ctx.Request().Context(), ctx.Param("tenantId"), ctx.Param("fkId"), ctx.Param("ccId"))
	if err != nil {
		return errors.Wrap(err, "listing cell mappings")
	}
	return ctx.JSON(http.StatusOK, mcs)
}

func (api *inbdeApi) createMapping(ctx echo.Context) error {
	var data mapping.NewMapping
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMapping")
	}

	mut, err := api.mappingSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating mapping")
	}
	warnIfStale(ctx, mut.RecalcErr)
	return ctx.JSON(http.StatusCreated, mut.Mapping)
}

func (api *inbdeApi) createMappings(ctx echo.Context) error {
	var data BulkMappingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMappingRequest")
	}
	threshold := api.defaultThreshold
	if data.Threshold != nil {
		threshold = *data.Threshold
	}

	res, err := api.mappingSvc.CreateBatch(ctx.Request().Context(), data.Suggestions, threshold)
	if err != nil {
		return errors.Wrap(err, "creating mappings")
	}
	warnIfStale(ctx, res.RecalcErr)
	return ctx.JSON(http.StatusOK, res)
}

func (api *inbdeApi) retrieveMapping(ctx echo.Context) error {
	m, err := api.mappingSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting mapping")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *inbdeApi) updateMapping(ctx echo.Context) error {
	var data mapping.UpdateMapping
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMapping")
	}

	mut, err := api.mappingSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating mapping")
	}
	warnIfStale(ctx, mut.RecalcErr)
	return ctx.JSON(http.StatusOK, mut.Mapping)
}

func (api *inbdeApi) destroyMapping(ctx echo.Context) error {
	mut, err := api.mappingSvc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting mapping")
	}
	warnIfStale(ctx, mut.RecalcErr)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Mapping deleted"})
}

func (api *inbdeApi) recalculate(ctx echo.Context) error {
	var data RecalculateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecalculateRequest")
	}
	scope := coverage.CourseScope(ctx.Param("tenantId"), data.CourseID)

	if data.Async {
		job, err := api.coverageSvc.StartRecalculation(ctx.Request().Context(), scope)
		if err != nil {
			return errors.Wrap(err, "starting recalculation")
		}
		return ctx.JSON(http.StatusAccepted, job)
	}

	report, err := api.coverageSvc.RecalculateAll(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "recalculating statistics")
	}
	return ctx.JSON(http.StatusOK, RecalculateResponse{Message: "Statistics recalculated", Report: report})
}

func (api *inbdeApi) retrieveJob(ctx echo.Context) error {
	job, err := api.coverageSvc.GetJob(ctx.Request().Context(), ctx.Param("jobId"))
	if err != nil {
		return errors.Wrap(err, "getting recalculation job")
	}
	return ctx.JSON(http.StatusOK, job)
}
