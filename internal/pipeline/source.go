package pipeline

import (
	"context"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/gommon/log"
)

var (
	// ErrNoData means every fallback tier was exhausted.
	ErrNoData = errors.New("chart data could not be loaded")
	// ErrStale means a newer load for the same container finished first.
	ErrStale = errors.New("superseded by a newer request")
	// ErrNotRendered means the operation needs a chart that does not exist yet.
	ErrNotRendered = errors.New("chart not rendered")
)

const DefaultFetchTimeout = 2 * time.Second

// Tier names which source produced a dataset.
type Tier string

const (
	TierPrimary  Tier = "primary"
	TierSample   Tier = "sample"
	TierEmbedded Tier = "embedded"
)

// Fetcher issues bounded GETs against the data API.
type Fetcher struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
	}
}

func (f *Fetcher) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s returned status: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// StateDistribution fetches the chart payload for category ("" or "all" is unscoped).
func (f *Fetcher) StateDistribution(ctx context.Context, category string) (models.Dataset, error) {
	path := "/data/state-distribution"
	if c := engine.NormalizeCategory(category); c != engine.AllCategory {
		path += "/" + url.PathEscape(c)
	}
	return f.chartPayload(ctx, path)
}

// SampleDistribution fetches the fallback-only sample payload.
func (f *Fetcher) SampleDistribution(ctx context.Context) (models.Dataset, error) {
	return f.chartPayload(ctx, "/data/sample-state-distribution")
}

func (f *Fetcher) chartPayload(ctx context.Context, path string) (models.Dataset, error) {
	var p models.ChartPayload
	if err := f.getJSON(ctx, path, &p); err != nil {
		return models.Dataset{}, err
	}
	ds, err := p.Dataset()
	if err != nil {
		return models.Dataset{}, fmt.Errorf("malformed %s: %w", path, err)
	}
	ds = engine.Paint(ds)
	if err := ds.Validate(); err != nil {
		return models.Dataset{}, fmt.Errorf("malformed %s: %w", path, err)
	}
	return ds, nil
}

// ChartData fetches /api/chart-data and normalizes it to a CategoryIndex.
func (f *Fetcher) ChartData(ctx context.Context) (models.CategoryIndex, error) {
	var p models.ChartDataPayload
	if err := f.getJSON(ctx, "/api/chart-data", &p); err != nil {
		return nil, err
	}
	idx, err := p.Index()
	if err != nil {
		return nil, fmt.Errorf("malformed /api/chart-data: %w", err)
	}
	for k, ds := range idx {
		ds = engine.Paint(ds)
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("malformed /api/chart-data category %q: %w", k, err)
		}
		idx[k] = ds
	}
	return idx, nil
}

// Source is what the Loader needs from a data API client.
type Source interface {
	StateDistribution(ctx context.Context, category string) (models.Dataset, error)
	SampleDistribution(ctx context.Context) (models.Dataset, error)
	ChartData(ctx context.Context) (models.CategoryIndex, error)
}

// LoadResult is a dataset plus where it came from.
type LoadResult struct {
	Dataset models.Dataset
	Tier    Tier
	Warning string
}

// Loader applies the fallback tiers on top of a Source. A nil Source means
// no network layer: the embedded data is used directly.
type Loader struct {
	src    Source
	logger *log.Logger
}

func NewLoader(src Source, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New("pipeline")
	}
	return &Loader{src: src, logger: logger}
}

// Load acquires the dataset for category: primary, then sample, then embedded.
func (l *Loader) Load(ctx context.Context, category string) (LoadResult, error) {
	start := time.Now()
	if l.src != nil {
		ds, err := l.src.StateDistribution(ctx, category)
		if err == nil {
			l.logger.Debugf("loaded %s distribution in %v", engine.NormalizeCategory(category), time.Since(start))
			return LoadResult{Dataset: ds, Tier: TierPrimary}, nil
		}
		l.logger.Warnf("primary chart data failed, trying sample: %v", err)

		ds, err = l.src.SampleDistribution(ctx)
		if err == nil {
			return LoadResult{Dataset: ds, Tier: TierSample, Warning: SampleWarning}, nil
		}
		l.logger.Warnf("sample chart data failed, using embedded: %v", err)
	}

	ds, ok := EmbeddedDataset(category)
	if !ok {
		return LoadResult{}, fmt.Errorf("%w: no data for category %q", ErrNoData, category)
	}
	return LoadResult{Dataset: ds, Tier: TierEmbedded, Warning: SampleWarning}, nil
}

// LoadIndex acquires the whole CategoryIndex, falling back to the embedded one.
func (l *Loader) LoadIndex(ctx context.Context) (models.CategoryIndex, Tier) {
	if l.src != nil {
		idx, err := l.src.ChartData(ctx)
		if err == nil {
			return idx, TierPrimary
		}
		l.logger.Warnf("chart index failed, using embedded: %v", err)
	}
	return EmbeddedIndex(), TierEmbedded
}
