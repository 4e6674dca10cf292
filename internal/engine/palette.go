package engine

import (
	"directoryhub/internal/models"
	"fmt"
)

// Palette is the fixed cyclic color set used by the dashboard charts.
// Fill[i] and Border[i] belong together.
var Palette = struct {
	Fill   []string
	Border []string
}{
	Fill: []string{
		"rgba(78, 115, 223, 0.8)",
		"rgba(28, 200, 138, 0.8)",
		"rgba(54, 185, 204, 0.8)",
		"rgba(246, 194, 62, 0.8)",
		"rgba(231, 74, 59, 0.8)",
		"rgba(133, 135, 150, 0.8)",
		"rgba(105, 153, 255, 0.8)",
		"rgba(78, 115, 223, 0.5)",
		"rgba(28, 200, 138, 0.5)",
		"rgba(54, 185, 204, 0.5)",
	},
	Border: []string{
		"rgba(78, 115, 223, 1)",
		"rgba(28, 200, 138, 1)",
		"rgba(54, 185, 204, 1)",
		"rgba(246, 194, 62, 1)",
		"rgba(231, 74, 59, 1)",
		"rgba(133, 135, 150, 1)",
		"rgba(105, 153, 255, 1)",
		"rgba(78, 115, 223, 0.8)",
		"rgba(28, 200, 138, 0.8)",
		"rgba(54, 185, 204, 0.8)",
	},
}

// Paint assigns palette color i mod len(palette) to entry i when the
// dataset does not already carry aligned colors.
func Paint(ds models.Dataset) models.Dataset {
	n := ds.Len()
	if len(ds.Fill) == n && len(ds.Border) == n {
		return ds
	}
	ds.Fill = make([]string, n)
	ds.Border = make([]string, n)
	for i := 0; i < n; i++ {
		ds.Fill[i] = Palette.Fill[i%len(Palette.Fill)]
		ds.Border[i] = Palette.Border[i%len(Palette.Border)]
	}
	return ds
}

type rgb struct{ r, g, b int }

// BlueGradient interpolates count colors from deep blue to light blue.
func BlueGradient(count int) (fill, border []string) {
	from := rgb{30, 87, 153}
	to := rgb{125, 185, 235}

	fill = make([]string, count)
	border = make([]string, count)
	for i := 0; i < count; i++ {
		factor := 0.0
		if count > 1 {
			factor = float64(i) / float64(count-1)
		}
		r := from.r + int(factor*float64(to.r-from.r))
		g := from.g + int(factor*float64(to.g-from.g))
		b := from.b + int(factor*float64(to.b-from.b))
		fill[i] = fmt.Sprintf("rgba(%d, %d, %d, 0.8)", r, g, b)
		border[i] = fmt.Sprintf("rgba(%d, %d, %d, 1)", r, g, b)
	}
	return fill, border
}

// BuildChartPayload shapes counted rows into the chart body served by the data API.
func BuildChartPayload(label string, rows []models.StateCount) models.ChartPayload {
	labels := make([]string, len(rows))
	data := make([]float64, len(rows))
	for i, r := range rows {
		labels[i] = r.Name
		data[i] = float64(r.Count)
	}
	fill, border := BlueGradient(len(rows))
	return models.ChartPayload{
		Labels: labels,
		Datasets: []models.ChartSeries{{
			Label:           label,
			Data:            data,
			BackgroundColor: fill,
			BorderColor:     border,
			BorderWidth:     1,
		}},
	}
}

// CountsToDataset converts counted rows to a painted dataset.
func CountsToDataset(rows []models.StateCount) models.Dataset {
	ds := models.Dataset{Labels: make([]string, len(rows)), Values: make([]float64, len(rows))}
	for i, r := range rows {
		ds.Labels[i] = r.Name
		ds.Values[i] = float64(r.Count)
	}
	return Paint(ds)
}
