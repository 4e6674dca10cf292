package pipeline

import (
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
)

// SampleWarning is shown whenever the displayed data did not come from the
// primary source.
const SampleWarning = "Note: Displaying sample data. Real data could not be loaded."

// embeddedIndex is the last-resort data set compiled into the binary.
var embeddedIndex = models.CategoryIndex{
	"all": {
		Labels: []string{"Texas", "Florida", "California", "New York", "Illinois", "Georgia", "Ohio", "Pennsylvania", "Michigan", "North Carolina"},
		Values: []float64{28, 24, 22, 17, 14, 12, 10, 9, 8, 8},
	},
	"vehicle": {
		Labels: []string{"Texas", "California", "Florida", "Ohio", "Michigan", "Illinois", "Georgia", "Pennsylvania", "New York", "Tennessee"},
		Values: []float64{12, 9, 8, 5, 4, 3, 3, 2, 1, 1},
	},
	"realestate": {
		Labels: []string{"Florida", "California", "New York", "Texas", "Illinois", "Georgia", "North Carolina", "Arizona", "Washington", "Colorado"},
		Values: []float64{14, 12, 10, 8, 6, 5, 4, 3, 1, 1},
	},
	"apartment": {
		Labels: []string{"New York", "California", "Texas", "Florida", "Illinois", "Georgia", "Massachusetts", "Washington", "Colorado", "Oregon"},
		Values: []float64{9, 8, 7, 5, 4, 3, 1, 1, 1, 1},
	},
}

// EmbeddedDataset returns the compiled-in dataset for category.
func EmbeddedDataset(category string) (models.Dataset, bool) {
	ds, ok := embeddedIndex[engine.NormalizeCategory(category)]
	if !ok {
		return models.Dataset{}, false
	}
	return engine.Paint(ds.Clone()), true
}

// EmbeddedIndex returns a painted copy of the compiled-in index.
func EmbeddedIndex() models.CategoryIndex {
	out := make(models.CategoryIndex, len(embeddedIndex))
	for k, ds := range embeddedIndex {
		out[k] = engine.Paint(ds.Clone())
	}
	return out
}

// SamplePayload is served by /data/sample-state-distribution.
func SamplePayload() models.ChartPayload {
	fill := []string{
		"rgba(41, 137, 216, 0.8)", "rgba(35, 123, 202, 0.8)", "rgba(30, 110, 188, 0.8)",
		"rgba(26, 96, 173, 0.8)", "rgba(22, 83, 159, 0.8)", "rgba(18, 70, 145, 0.8)",
		"rgba(14, 57, 130, 0.8)", "rgba(11, 44, 116, 0.8)", "rgba(8, 31, 102, 0.8)",
		"rgba(5, 18, 87, 0.8)",
	}
	border := []string{
		"rgba(41, 137, 216, 1)", "rgba(35, 123, 202, 1)", "rgba(30, 110, 188, 1)",
		"rgba(26, 96, 173, 1)", "rgba(22, 83, 159, 1)", "rgba(18, 70, 145, 1)",
		"rgba(14, 57, 130, 1)", "rgba(11, 44, 116, 1)", "rgba(8, 31, 102, 1)",
		"rgba(5, 18, 87, 1)",
	}
	return models.ChartPayload{
		Labels: []string{"California", "Texas", "Florida", "New York", "Illinois",
			"Pennsylvania", "Ohio", "Georgia", "North Carolina", "Michigan"},
		Datasets: []models.ChartSeries{{
			Label:           "Businesses by State",
			Data:            []float64{24, 18, 16, 14, 12, 10, 9, 8, 7, 6},
			BackgroundColor: fill,
			BorderColor:     border,
			BorderWidth:     1,
		}},
	}
}
