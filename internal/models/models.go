package models

import (
	"errors"
	"fmt"
	"slices"
)

// Dataset holds one chart series in Struct-of-Arrays format.
// Labels, Values, Fill and Border are index-aligned.
type Dataset struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Fill   []string  `json:"background_color"`
	Border []string  `json:"border_color"`
}

// CategoryIndex maps a business-category key to its own dataset.
type CategoryIndex map[string]Dataset

func (d Dataset) Len() int { return len(d.Labels) }

// Validate checks the alignment, uniqueness and sign invariants.
func (d Dataset) Validate() error {
	n := len(d.Labels)
	if len(d.Values) != n || len(d.Fill) != n || len(d.Border) != n {
		return fmt.Errorf("dataset misaligned: labels=%d values=%d fill=%d border=%d",
			n, len(d.Values), len(d.Fill), len(d.Border))
	}
	seen := make(map[string]struct{}, n)
	for i, l := range d.Labels {
		if _, dup := seen[l]; dup {
			return fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = struct{}{}
		if d.Values[i] < 0 {
			return fmt.Errorf("negative value %v for %q", d.Values[i], l)
		}
	}
	return nil
}

// Pick re-slices every column by the same index list. d must be aligned.
func (d Dataset) Pick(indices []int) Dataset {
	out := Dataset{
		Labels: make([]string, len(indices)),
		Values: make([]float64, len(indices)),
		Fill:   make([]string, len(indices)),
		Border: make([]string, len(indices)),
	}
	for k, i := range indices {
		out.Labels[k] = d.Labels[i]
		out.Values[k] = d.Values[i]
		out.Fill[k] = d.Fill[i]
		out.Border[k] = d.Border[i]
	}
	return out
}

// IndexOf returns the position of label, or -1.
func (d Dataset) IndexOf(label string) int {
	for i, l := range d.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing arrays with d.
func (d Dataset) Clone() Dataset {
	return Dataset{
		Labels: slices.Clone(d.Labels),
		Values: slices.Clone(d.Values),
		Fill:   slices.Clone(d.Fill),
		Border: slices.Clone(d.Border),
	}
}

// Equal reports whether both datasets hold the same entries in the same order.
func (d Dataset) Equal(o Dataset) bool {
	return slices.Equal(d.Labels, o.Labels) &&
		slices.Equal(d.Values, o.Values) &&
		slices.Equal(d.Fill, o.Fill) &&
		slices.Equal(d.Border, o.Border)
}

// --- WIRE SHAPES ---

// ChartPayload is the pre-shaped chart body of /data/state-distribution.
type ChartPayload struct {
	Labels   []string      `json:"labels"`
	Datasets []ChartSeries `json:"datasets"`
}

type ChartSeries struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     []string  `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

// ChartDataPayload is the body of /api/chart-data.
type ChartDataPayload struct {
	Labels        []string              `json:"labels"`
	Values        []float64             `json:"values"`
	BusinessTypes map[string]SeriesPair `json:"businessTypes"`
}

type SeriesPair struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

var ErrEmptyPayload = errors.New("payload has no datasets")

// Dataset normalizes the first series of the payload. Colors are kept only
// when they line up with the labels; otherwise they are left empty for the
// caller to paint.
func (p ChartPayload) Dataset() (Dataset, error) {
	if len(p.Datasets) == 0 {
		return Dataset{}, ErrEmptyPayload
	}
	s := p.Datasets[0]
	if len(s.Data) != len(p.Labels) {
		return Dataset{}, fmt.Errorf("payload misaligned: labels=%d data=%d", len(p.Labels), len(s.Data))
	}
	ds := Dataset{Labels: p.Labels, Values: s.Data}
	if len(s.BackgroundColor) == len(p.Labels) && len(s.BorderColor) == len(p.Labels) {
		ds.Fill = s.BackgroundColor
		ds.Border = s.BorderColor
	}
	return ds, nil
}

// Index normalizes the businessTypes block; the top-level series becomes
// "all" when the block does not carry one.
func (p ChartDataPayload) Index() (CategoryIndex, error) {
	idx := make(CategoryIndex, len(p.BusinessTypes)+1)
	for key, s := range p.BusinessTypes {
		if len(s.Labels) != len(s.Values) {
			return nil, fmt.Errorf("category %q misaligned: labels=%d values=%d", key, len(s.Labels), len(s.Values))
		}
		idx[key] = Dataset{Labels: s.Labels, Values: s.Values}
	}
	if _, ok := idx["all"]; !ok && len(p.Labels) > 0 {
		if len(p.Labels) != len(p.Values) {
			return nil, fmt.Errorf("payload misaligned: labels=%d values=%d", len(p.Labels), len(p.Values))
		}
		idx["all"] = Dataset{Labels: p.Labels, Values: p.Values}
	}
	if len(idx) == 0 {
		return nil, ErrEmptyPayload
	}
	return idx, nil
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	ID        int64  `json:"id" db:"id"`
	User      string `json:"user" db:"username"`
	Action    string `json:"action" db:"action"`
	Kind      string `json:"kind" db:"kind"`
	Timestamp string `json:"timestamp" db:"ts"`
	Details   string `json:"details,omitempty" db:"details"`
}

// StateCount is one aggregated (label, count) row.
type StateCount struct {
	Name  string `db:"name"`
	Count int    `db:"count"`
}

// TypeStateCount is one (business type, state) cell of the count matrix.
type TypeStateCount struct {
	Type  string `db:"type"`
	State string `db:"state"`
	Count int    `db:"count"`
}

// DashboardData is the aggregate published by the ETL for the data API.
// StateCounts is keyed by business type, plus "all"; rows are ordered by
// count descending.
type DashboardData struct {
	StateCounts map[string][]StateCount `json:"state_counts"`
	TypeCounts  []StateCount            `json:"type_counts"`
	Rows        int                     `json:"rows"`
}
