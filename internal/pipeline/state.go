package pipeline

import (
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"fmt"
	"strings"
)

// Kind is the render mode of a chart.
type Kind string

const (
	KindBar Kind = "bar"
	KindPie Kind = "pie"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBar, KindPie:
		return k, nil
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

// Filter selector values. Single-region selectors are statePrefix + label.
const (
	FilterAll    = "all"
	FilterTop    = "top5"
	FilterBottom = "bottom5"

	statePrefix = "state_"
	rankSize    = 5
)

// StateSelector builds the single-region selector for label.
func StateSelector(label string) string { return statePrefix + label }

// FilterOptions lists the selector options for a loaded dataset: the fixed
// options first, then one per label.
func FilterOptions(ds models.Dataset) []string {
	opts := make([]string, 0, 3+ds.Len())
	opts = append(opts, FilterAll, FilterTop, FilterBottom)
	for _, l := range ds.Labels {
		opts = append(opts, StateSelector(l))
	}
	return opts
}

// ChartState is the displayed visualization of one container.
type ChartState struct {
	Category string
	Kind     Kind
	Filter   string
	Full     models.Dataset // dataset of Category as loaded
	Shown    models.Dataset // Full after Filter
	Tier     Tier
	Warning  string
}

// NewChartState starts a state on a freshly loaded dataset with no filter.
func NewChartState(category string, kind Kind, res LoadResult) ChartState {
	return ChartState{
		Category: engine.NormalizeCategory(category),
		Kind:     kind,
		Filter:   FilterAll,
		Full:     res.Dataset,
		Shown:    res.Dataset,
		Tier:     res.Tier,
		Warning:  res.Warning,
	}
}

// ApplyFilter computes the next state for selector. It reports false, and
// returns s unchanged, when the selector does not apply (unknown selector or
// a region missing from the displayed data).
func ApplyFilter(s ChartState, selector string) (ChartState, bool) {
	switch {
	case selector == FilterAll:
		s.Shown = s.Full
	case selector == FilterTop:
		s.Shown = engine.TopN(s.Full, rankSize)
	case selector == FilterBottom:
		s.Shown = engine.BottomN(s.Full, rankSize)
	case strings.HasPrefix(selector, statePrefix):
		shown, ok := engine.Single(s.Shown, strings.TrimPrefix(selector, statePrefix))
		if !ok {
			return s, false
		}
		s.Shown = shown
	default:
		return s, false
	}
	s.Filter = selector
	return s, true
}
