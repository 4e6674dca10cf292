package api

import (
	"bytes"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"directoryhub/internal/pipeline"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
)

var containerPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validContainer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !containerPattern.MatchString(c.Param("container")) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid container id")
		}
		return next(c)
	}
}

type stateResponse struct {
	Container    string         `json:"container"`
	Loaded       bool           `json:"loaded"`
	Category     string         `json:"category,omitempty"`
	CategoryName string         `json:"category_name,omitempty"`
	Kind         pipeline.Kind  `json:"kind,omitempty"`
	Filter       string         `json:"filter,omitempty"`
	Applied      *bool          `json:"applied,omitempty"`
	Tier         pipeline.Tier  `json:"tier,omitempty"`
	Warning      string         `json:"warning,omitempty"`
	Error        string         `json:"error,omitempty"`
	ShowAxes     bool           `json:"show_axes"`
	ShowLegend   bool           `json:"show_legend"`
	Options      []string       `json:"options,omitempty"`
	Dataset      models.Dataset `json:"dataset"`
}

func (h *Handler) stateOf(p *pipeline.Panel) stateResponse {
	snap := p.Snapshot()
	out := stateResponse{Container: snap.Container, Loaded: snap.Loaded, Options: snap.Options}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	if !snap.Loaded {
		return out
	}
	st := snap.State
	out.Category = st.Category
	out.CategoryName = engine.DisplayName(st.Category)
	out.Kind = st.Kind
	out.Filter = st.Filter
	out.Tier = st.Tier
	out.Warning = st.Warning
	out.Dataset = st.Shown
	if hd := p.Handle(); hd != nil {
		o := hd.Options()
		out.ShowAxes, out.ShowLegend = o.ShowAxes, o.ShowLegend
	}
	return out
}

// panel returns the container's panel after its initial load.
func (h *Handler) panel(c echo.Context) (*pipeline.Panel, error) {
	p := h.board.Panel(c.Param("container"))
	err := p.EnsureLoaded(c.Request().Context())
	if err != nil && !errors.Is(err, pipeline.ErrNoData) {
		return nil, err
	}
	return p, nil
}

// respond answers form posts with a redirect to the page and everything else
// with the JSON state.
func (h *Handler) respond(c echo.Context, p *pipeline.Panel, status int, applied *bool) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		return c.Redirect(http.StatusSeeOther, "/dashboard/"+c.Param("container"))
	}
	st := h.stateOf(p)
	st.Applied = applied
	return c.JSON(status, st)
}

// GetDashboard renders the chart page. A terminal load failure replaces the
// chart with an inline message.
func (h *Handler) GetDashboard(c echo.Context) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}
	st := h.stateOf(p)
	view := dashboardView{
		State:          st,
		Title:          pipeline.ChartTitle,
		Categories:     h.categories(st.Category),
		ExportFilename: pipeline.ExportFilename,
	}
	for _, opt := range st.Options {
		view.Filters = append(view.Filters, filterOption{Value: opt, Label: filterLabel(opt), Selected: opt == st.Filter})
	}
	return c.Render(http.StatusOK, "dashboard", view)
}

// GetChartHTML serves the interactive chart embedded by the dashboard page.
func (h *Handler) GetChartHTML(c echo.Context) error {
	hd := h.board.Panel(c.Param("container")).Handle()
	if hd == nil {
		return c.NoContent(http.StatusNoContent)
	}
	var buf bytes.Buffer
	if err := hd.WriteHTML(&buf); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) GetState(c echo.Context) error {
	p, err := h.panel(c)
	if err != nil {
		return err
	}
	st := h.stateOf(p)
	if !st.Loaded {
		return c.JSON(http.StatusServiceUnavailable, st)
	}
	return c.JSON(http.StatusOK, st)
}

// GetExport downloads the chart as PNG. Without a chart there is nothing to
// export and the answer is 204.
func (h *Handler) GetExport(c echo.Context) error {
	p := h.board.Panel(c.Param("container"))
	var buf bytes.Buffer
	err := p.Export(c.Request().Context(), &buf)
	if errors.Is(err, pipeline.ErrNotRendered) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return fmt.Errorf("export chart: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", pipeline.ExportFilename))
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

type filterRequest struct {
	Selector string `json:"selector" form:"selector"`
}

// PostFilter applies a sub-filter. A selector naming a region that is not
// displayed leaves the chart as it is.
func (h *Handler) PostFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Selector == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "selector is required")
	}
	p := h.board.Panel(c.Param("container"))
	_, applied, err := p.ApplyFilter(req.Selector)
	if errors.Is(err, pipeline.ErrNotRendered) {
		return c.NoContent(http.StatusNoContent)
	}
	return h.respond(c, p, http.StatusOK, &applied)
}

type typeRequest struct {
	Kind string `json:"kind" form:"kind"`
}

func (h *Handler) PostType(c echo.Context) error {
	var req typeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	kind, err := pipeline.ParseKind(req.Kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := h.board.Panel(c.Param("container"))
	if _, err := p.SetKind(c.Request().Context(), kind); errors.Is(err, pipeline.ErrNotRendered) {
		return c.NoContent(http.StatusNoContent)
	}
	return h.respond(c, p, http.StatusOK, nil)
}

type categoryRequest struct {
	Category string `json:"category" form:"category"`
}

// PostCategory re-acquires data for another business category. When every
// fallback tier fails the answer is 503 carrying the error.
func (h *Handler) PostCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	p := h.board.Panel(c.Param("container"))
	_, err := p.SetCategory(c.Request().Context(), req.Category)
	switch {
	case err == nil, errors.Is(err, pipeline.ErrStale):
		return h.respond(c, p, http.StatusOK, nil)
	case errors.Is(err, pipeline.ErrNoData):
		return h.respond(c, p, http.StatusServiceUnavailable, nil)
	}
	return fmt.Errorf("load category %q: %w", req.Category, err)
}

// categories lists the category selector: "all" first, then the business
// types of the category index, of the ETL aggregate, or the built-in ones.
func (h *Handler) categories(current string) []filterOption {
	keys := h.board.Categories()
	if len(keys) == 0 {
		keys = []string{engine.AllCategory}
		if data, err := h.dashboard(); err == nil {
			for _, tc := range data.TypeCounts {
				keys = append(keys, tc.Name)
			}
		} else {
			keys = append(keys, "vehicle", "realestate", "apartment")
		}
	}
	out := make([]filterOption, len(keys))
	for i, k := range keys {
		out[i] = filterOption{Value: k, Label: engine.DisplayName(k), Selected: k == current}
	}
	return out
}

func filterLabel(selector string) string {
	switch selector {
	case pipeline.FilterAll:
		return "All States"
	case pipeline.FilterTop:
		return "Top 5 States"
	case pipeline.FilterBottom:
		return "Bottom 5 States"
	}
	return strings.TrimPrefix(selector, "state_")
}
