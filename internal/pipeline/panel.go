package pipeline

import (
	"context"
	"directoryhub/internal/activity"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/labstack/gommon/log"
)

// Panel drives the chart of one container: load, filter, switch type, export.
type Panel struct {
	container string
	loader    *Loader
	renderer  *Renderer
	recorder  activity.Recorder
	logger    *log.Logger

	// gen is the ticket of the latest load issued for this container.
	gen atomic.Uint64

	mu      sync.Mutex
	state   ChartState
	loaded  bool
	lastErr error
}

// Snapshot is a read-only view of a panel.
type Snapshot struct {
	Container string
	State     ChartState
	Loaded    bool
	Err       error
	Options   []string
}

// Load acquires data for category and renders it. The sub-filter resets to
// "all". A load finishing after a newer one was issued returns ErrStale and
// changes nothing.
func (p *Panel) Load(ctx context.Context, category string) (ChartState, error) {
	ticket := p.gen.Add(1)
	res, err := p.loader.Load(ctx, category)

	p.mu.Lock()
	defer p.mu.Unlock()

	if ticket != p.gen.Load() {
		p.logger.Debugf("%s: discarding load #%d (latest #%d)", p.container, ticket, p.gen.Load())
		return p.state, ErrStale
	}
	if err != nil {
		p.lastErr = err
		p.loaded = false
		p.renderer.Destroy(p.container)
		return ChartState{}, err
	}

	kind := p.state.Kind
	if kind == "" {
		kind = KindBar
	}
	p.state = NewChartState(category, kind, res)
	p.loaded = true
	p.lastErr = nil
	p.render()
	return p.state, nil
}

// EnsureLoaded performs the initial load once.
func (p *Panel) EnsureLoaded(ctx context.Context) error {
	p.mu.Lock()
	loaded, lastErr := p.loaded, p.lastErr
	p.mu.Unlock()
	if loaded || lastErr != nil {
		return lastErr
	}
	_, err := p.Load(ctx, engine.AllCategory)
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}

// SetCategory switches business category, re-acquiring its data.
func (p *Panel) SetCategory(ctx context.Context, category string) (ChartState, error) {
	st, err := p.Load(ctx, category)
	if err == nil {
		p.record(ctx, fmt.Sprintf("Filtered business chart by %s", engine.DisplayName(category)), activity.KindBusiness)
	}
	return st, err
}

// ApplyFilter applies selector to the loaded data. applied is false for a
// lookup miss; ErrNotRendered is returned before the first load.
func (p *Panel) ApplyFilter(selector string) (ChartState, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return ChartState{}, false, ErrNotRendered
	}
	next, ok := ApplyFilter(p.state, selector)
	if !ok {
		return p.state, false, nil
	}
	p.state = next
	p.render()
	return p.state, true, nil
}

// SetKind switches the render mode.
func (p *Panel) SetKind(ctx context.Context, kind Kind) (ChartState, error) {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return ChartState{}, ErrNotRendered
	}
	changed := p.state.Kind != kind
	p.state.Kind = kind
	p.render()
	st := p.state
	p.mu.Unlock()

	if changed {
		p.record(ctx, fmt.Sprintf("Switched business chart to %s", kind), activity.KindBusiness)
	}
	return st, nil
}

// Export writes the current chart as PNG.
func (p *Panel) Export(ctx context.Context, w io.Writer) error {
	if err := Export(p.renderer.Handle(p.container), w); err != nil {
		return err
	}
	p.record(ctx, "Downloaded business distribution chart", activity.KindDocument)
	return nil
}

// Handle returns the live chart, or nil.
func (p *Panel) Handle() *ChartHandle { return p.renderer.Handle(p.container) }

func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{Container: p.container, State: p.state, Loaded: p.loaded, Err: p.lastErr}
	if p.loaded {
		s.Options = FilterOptions(p.state.Full)
	}
	return s
}

// render must be called with p.mu held.
func (p *Panel) render() {
	p.renderer.Render(p.container, p.state.Kind, p.state.Shown, Options{Subtitle: p.state.Warning})
}

func (p *Panel) record(ctx context.Context, action, kind string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, models.ActivityEntry{Action: action, Kind: kind}); err != nil {
		p.logger.Warnf("record activity: %v", err)
	}
}

// Board holds one panel per container.
type Board struct {
	loader   *Loader
	renderer *Renderer
	recorder activity.Recorder
	logger   *log.Logger

	mu     sync.Mutex
	panels map[string]*Panel
	index  models.CategoryIndex
}

func NewBoard(loader *Loader, recorder activity.Recorder, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.New("pipeline")
	}
	return &Board{
		loader:   loader,
		renderer: NewRenderer(),
		recorder: recorder,
		logger:   logger,
		panels:   make(map[string]*Panel),
	}
}

// Panel returns the panel of container, creating it on first use.
func (b *Board) Panel(container string) *Panel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.panels[container]; ok {
		return p
	}
	p := &Panel{
		container: container,
		loader:    b.loader,
		renderer:  b.renderer,
		recorder:  b.recorder,
		logger:    b.logger,
	}
	b.panels[container] = p
	return p
}

// LoadIndex acquires the category index and keeps it for Categories.
func (b *Board) LoadIndex(ctx context.Context) (models.CategoryIndex, Tier) {
	idx, tier := b.loader.LoadIndex(ctx)
	b.mu.Lock()
	b.index = idx
	b.mu.Unlock()
	b.logger.Infof("category index: %d categories from %s source", len(idx), tier)
	return idx, tier
}

// Categories lists the keys of the loaded index, AllCategory first and the
// rest sorted. It is nil until LoadIndex ran.
func (b *Board) Categories() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.index) == 0 {
		return nil
	}
	keys := make([]string, 0, len(b.index))
	for k := range b.index {
		if engine.NormalizeCategory(k) != engine.AllCategory {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return append([]string{engine.AllCategory}, keys...)
}
