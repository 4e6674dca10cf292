package pipeline

import (
	"directoryhub/internal/models"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	ChartTitle     = "Business Distribution by State"
	AxisX          = "State"
	AxisY          = "Number of Businesses"
	ExportFilename = "business_distribution_by_state.png"
)

// Options are the visual settings of a chart.
type Options struct {
	Title      string
	Subtitle   string
	ShowAxes   bool
	ShowLegend bool
}

// withMode applies the axis/legend policy: bar shows axes and hides the
// legend, pie does the opposite.
func (o Options) withMode(kind Kind) Options {
	if o.Title == "" {
		o.Title = ChartTitle
	}
	o.ShowAxes = kind == KindBar
	o.ShowLegend = kind == KindPie
	return o
}

// ChartHandle is the live chart of one container.
type ChartHandle struct {
	mu        sync.RWMutex
	container string
	kind      Kind
	data      models.Dataset
	opts      Options
	destroyed bool
}

func (h *ChartHandle) Kind() Kind {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.kind
}

func (h *ChartHandle) Options() Options {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.opts
}

func (h *ChartHandle) Dataset() models.Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

func (h *ChartHandle) Destroyed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.destroyed
}

// Destroy releases the handle; later exports report ErrNotRendered.
func (h *ChartHandle) Destroy() {
	h.mu.Lock()
	h.destroyed = true
	h.data = models.Dataset{}
	h.mu.Unlock()
}

func (h *ChartHandle) update(ds models.Dataset, o Options) {
	h.mu.Lock()
	h.data = ds
	h.opts = o
	h.mu.Unlock()
}

// Renderer owns one chart per container.
type Renderer struct {
	mu     sync.Mutex
	charts map[string]*ChartHandle
}

func NewRenderer() *Renderer {
	return &Renderer{charts: make(map[string]*ChartHandle)}
}

// Render draws ds into container. An existing chart of the same kind is
// updated in place; a chart of another kind is destroyed and rebuilt.
func (r *Renderer) Render(container string, kind Kind, ds models.Dataset, o Options) *ChartHandle {
	o = o.withMode(kind)

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.charts[container]; ok {
		if h.Kind() == kind {
			h.update(ds, o)
			return h
		}
		h.Destroy()
	}
	h := &ChartHandle{container: container, kind: kind, data: ds, opts: o}
	r.charts[container] = h
	return h
}

// Handle returns the current chart of container, or nil.
func (r *Renderer) Handle(container string) *ChartHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.charts[container]
}

// Destroy tears down the chart of container, if any.
func (r *Renderer) Destroy(container string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.charts[container]; ok {
		h.Destroy()
		delete(r.charts, container)
	}
}

// Export writes the chart as PNG.
func Export(h *ChartHandle, w io.Writer) error {
	if h == nil || h.Destroyed() {
		return ErrNotRendered
	}
	return h.WritePNG(w)
}

// --- RASTER (go-chart) ---

func chartSize(n int) (int, int) {
	w := 120 + n*70
	if w < 800 {
		w = 800
	}
	h := int(float32(w) * 0.5)
	if h < 360 {
		h = 360
	}
	if h > 520 {
		h = 520
	}
	return w, h
}

// WritePNG draws the chart with go-chart.
func (h *ChartHandle) WritePNG(w io.Writer) error {
	h.mu.RLock()
	kind, ds, o := h.kind, h.data, h.opts
	h.mu.RUnlock()

	if ds.Len() == 0 {
		return fmt.Errorf("render %s: empty dataset", kind)
	}
	width, height := chartSize(ds.Len())

	values := make([]chart.Value, ds.Len())
	for i := range ds.Labels {
		values[i] = chart.Value{
			Label: ds.Labels[i],
			Value: ds.Values[i],
			Style: chart.Style{
				FillColor:   parseColor(ds.Fill[i]),
				StrokeColor: parseColor(ds.Border[i]),
				StrokeWidth: 1,
			},
		}
	}

	if kind == KindPie {
		if allZero(ds.Values) {
			// go-chart refuses a pie without a non-zero slice.
			values = []chart.Value{{
				Label: "No businesses",
				Value: 1,
				Style: chart.Style{FillColor: chart.ColorAlternateGray, StrokeColor: chart.ColorAlternateGray, StrokeWidth: 1},
			}}
		}
		pie := chart.PieChart{
			Title:  o.Title,
			Width:  width,
			Height: height,
			Background: chart.Style{
				Padding: chart.Box{Top: 40, Right: 220},
			},
			Values: values,
		}
		if o.ShowLegend {
			pie.Elements = []chart.Renderable{legend(ds)}
		}
		return pie.Render(chart.PNG, w)
	}

	barWidth := (width - 120) / ds.Len() * 3 / 5
	if barWidth < 10 {
		barWidth = 10
	}
	bar := chart.BarChart{
		Title:  o.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: barWidth,
		XAxis:    chart.Style{Hidden: !o.ShowAxes},
		YAxis: chart.YAxis{
			Name:  AxisY,
			Style: chart.Style{Hidden: !o.ShowAxes},
			Range: &chart.ContinuousRange{Min: 0, Max: yMax(ds.Values)},
		},
		Bars: values,
	}
	return bar.Render(chart.PNG, w)
}

// legend draws a color key in the right padding of a pie chart.
func legend(ds models.Dataset) chart.Renderable {
	return func(r chart.Renderer, cb chart.Box, defaults chart.Style) {
		if defaults.Font != nil {
			r.SetFont(defaults.Font)
		}
		r.SetFontSize(10)
		r.SetFontColor(chart.ColorBlack)
		x := cb.Right + 20
		y := cb.Top
		for i, label := range ds.Labels {
			top := y + i*18
			r.SetFillColor(parseColor(ds.Fill[i]))
			r.SetStrokeColor(parseColor(ds.Border[i]))
			r.SetStrokeWidth(1)
			r.MoveTo(x, top)
			r.LineTo(x+12, top)
			r.LineTo(x+12, top+12)
			r.LineTo(x, top+12)
			r.Close()
			r.FillStroke()
			r.Text(fmt.Sprintf("%s (%s)", label, formatCount(ds.Values[i])), x+18, top+10)
		}
	}
}

// parseColor reads "rgba(r, g, b, a)", "rgb(r, g, b)" or "#rrggbb".
func parseColor(s string) drawing.Color {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end <= open {
		return chart.ColorAlternateGray
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return chart.ColorAlternateGray
	}
	channel := func(p string) uint8 {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	c := drawing.Color{R: channel(parts[0]), G: channel(parts[1]), B: channel(parts[2]), A: 255}
	if len(parts) == 4 {
		if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil && a >= 0 && a <= 1 {
			c.A = uint8(a * 255)
		}
	}
	return c
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// yMax pads the tallest bar so the range is never empty.
func yMax(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = math.Max(m, v)
	}
	if m == 0 {
		return 1
	}
	return math.Ceil(m * 1.1)
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- INTERACTIVE (go-echarts) ---

// chartID makes container usable as a JavaScript identifier.
func chartID(container string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, container)
}

// WriteHTML renders the chart as a standalone go-echarts page.
func (h *ChartHandle) WriteHTML(w io.Writer) error {
	h.mu.RLock()
	container, kind, ds, o := h.container, h.kind, h.data, h.opts
	h.mu.RUnlock()

	page := components.NewPage()
	page.PageTitle = "Directory Hub"

	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:   "900px",
			Height:  "480px",
			ChartID: chartID(container),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: o.Subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(o.ShowLegend),
			Orient: "vertical",
			Right:  "10",
		}),
	}

	if kind == KindPie {
		data := make([]opts.PieData, ds.Len())
		for i := range ds.Labels {
			data[i] = opts.PieData{
				Name:      ds.Labels[i],
				Value:     ds.Values[i],
				ItemStyle: &opts.ItemStyle{Color: ds.Fill[i], BorderColor: ds.Border[i]},
			}
		}
		pie := charts.NewPie()
		pie.SetGlobalOptions(append(global, charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{b}: {c} businesses",
		}))...)
		pie.AddSeries(AxisY, data)
		page.AddCharts(pie)
		return page.Render(w)
	}

	data := make([]opts.BarData, ds.Len())
	for i := range ds.Labels {
		data[i] = opts.BarData{
			Value:     ds.Values[i],
			ItemStyle: &opts.ItemStyle{Color: ds.Fill[i], BorderColor: ds.Border[i]},
		}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(global,
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{c} businesses",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: AxisX,
			Show: opts.Bool(o.ShowAxes),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: AxisY,
			Show: opts.Bool(o.ShowAxes),
		}),
	)...)
	bar.SetXAxis(ds.Labels).AddSeries(AxisY, data)
	page.AddCharts(bar)
	return page.Render(w)
}
