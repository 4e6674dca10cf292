package api

import (
	"directoryhub/internal/activity"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"directoryhub/internal/pipeline"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type Handler struct {
	mu   sync.RWMutex
	data *models.DashboardData

	board    *pipeline.Board
	activity activity.Recorder
}

// NewHandler serves data once SetData is called; until then the data routes
// answer 503. data may be nil.
func NewHandler(data *models.DashboardData, board *pipeline.Board, rec activity.Recorder) *Handler {
	if rec == nil {
		rec = activity.NewRing(activity.DefaultCapacity)
	}
	return &Handler{data: data, board: board, activity: rec}
}

// SetData publishes the aggregate produced by the ETL.
func (h *Handler) SetData(data *models.DashboardData) {
	h.mu.Lock()
	h.data = data
	h.mu.Unlock()
}

func (h *Handler) dashboard() (*models.DashboardData, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.data == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "data is still loading")
	}
	return h.data, nil
}

// RegisterRoutes mounts the data API and the dashboard. Dashboard mutations
// are rate limited per client when mutationsPerSecond > 0.
func (h *Handler) RegisterRoutes(e *echo.Echo, mutationsPerSecond float64) {
	e.JSONSerializer = jsonSerializer{}
	e.Renderer = newTemplates()

	data := e.Group("/data")
	data.GET("/state-distribution", h.GetStateDistribution)
	data.GET("/state-distribution/:category", h.GetStateDistribution)
	data.GET("/sample-state-distribution", h.GetSampleDistribution)
	data.GET("/business-types", h.GetBusinessTypes)
	data.GET("/recent-activity", h.GetRecentActivity)

	api := e.Group("/api")
	api.GET("/chart-data", h.GetChartData)

	if h.board == nil {
		return
	}
	dash := e.Group("/dashboard/:container", validContainer)
	dash.GET("", h.GetDashboard)
	dash.GET("/chart.html", h.GetChartHTML)
	dash.GET("/state", h.GetState)
	dash.GET("/export.png", h.GetExport)

	var limit []echo.MiddlewareFunc
	if mutationsPerSecond > 0 {
		limit = append(limit, middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(mutationsPerSecond))))
	}
	dash.POST("/filter", h.PostFilter, limit...)
	dash.POST("/type", h.PostType, limit...)
	dash.POST("/category", h.PostCategory, limit...)
}

// --- HANDLERS ---
func getLimitParam(c echo.Context, defaultLimit, maxLimit int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// GetStateDistribution returns the chart payload of one business type, or of
// all businesses when no category is given.
func (h *Handler) GetStateDistribution(c echo.Context) error {
	data, err := h.dashboard()
	if err != nil {
		return err
	}
	category := engine.NormalizeCategory(c.Param("category"))
	rows, ok := data.StateCounts[category]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown business type %q", category))
	}
	label := "Businesses by State"
	if category != engine.AllCategory {
		label = category + " by State"
	}
	return c.JSON(http.StatusOK, engine.BuildChartPayload(label, rows))
}

func (h *Handler) GetSampleDistribution(c echo.Context) error {
	return c.JSON(http.StatusOK, pipeline.SamplePayload())
}

func (h *Handler) GetBusinessTypes(c echo.Context) error {
	data, err := h.dashboard()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.BuildChartPayload("Business Types", data.TypeCounts))
}

// returns the latest activity entries, newest first
func (h *Handler) GetRecentActivity(c echo.Context) error {
	limit := getLimitParam(c, activity.DefaultCapacity, activity.DefaultCapacity)
	entries, err := h.activity.Recent(c.Request().Context(), limit)
	if err != nil {
		c.Logger().Errorf("recent activity: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load recent activity")
	}
	if entries == nil {
		entries = []models.ActivityEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// GetChartData returns every category at once. ?type= scopes the top-level
// series; an unknown type yields an empty series.
func (h *Handler) GetChartData(c echo.Context) error {
	data, err := h.dashboard()
	if err != nil {
		return err
	}
	out := models.ChartDataPayload{
		Labels:        []string{},
		Values:        []float64{},
		BusinessTypes: make(map[string]models.SeriesPair, len(data.StateCounts)),
	}
	for key, rows := range data.StateCounts {
		if key == engine.AllCategory {
			continue
		}
		ds := engine.CountsToDataset(rows)
		out.BusinessTypes[key] = models.SeriesPair{Labels: ds.Labels, Values: ds.Values}
	}
	if rows, ok := data.StateCounts[engine.NormalizeCategory(c.QueryParam("type"))]; ok {
		ds := engine.CountsToDataset(rows)
		out.Labels, out.Values = ds.Labels, ds.Values
	}
	return c.JSON(http.StatusOK, out)
}
