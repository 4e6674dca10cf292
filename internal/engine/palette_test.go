package engine

import (
	"directoryhub/internal/models"
	"testing"
)

func TestPaintCycles(t *testing.T) {
	n := len(Palette.Fill)*2 + 3
	ds := models.Dataset{Labels: make([]string, n), Values: make([]float64, n)}
	for i := range ds.Labels {
		ds.Labels[i] = string(rune('A' + i))
	}
	got := Paint(ds)
	if len(got.Fill) != n || len(got.Border) != n {
		t.Fatalf("colors not aligned: %d/%d", len(got.Fill), len(got.Border))
	}
	for i := 0; i < n; i++ {
		if got.Fill[i] != Palette.Fill[i%len(Palette.Fill)] {
			t.Errorf("entry %d: fill %s", i, got.Fill[i])
		}
	}
}

func TestPaintKeepsAlignedColors(t *testing.T) {
	ds := models.Dataset{
		Labels: []string{"a"},
		Values: []float64{1},
		Fill:   []string{"red"},
		Border: []string{"blue"},
	}
	if got := Paint(ds); got.Fill[0] != "red" || got.Border[0] != "blue" {
		t.Errorf("aligned colors were overwritten: %+v", got)
	}
}

func TestBlueGradientEnds(t *testing.T) {
	fill, border := BlueGradient(3)
	if fill[0] != "rgba(30, 87, 153, 0.8)" || border[0] != "rgba(30, 87, 153, 1)" {
		t.Errorf("start color %s / %s", fill[0], border[0])
	}
	if fill[2] != "rgba(125, 185, 235, 0.8)" {
		t.Errorf("end color %s", fill[2])
	}
	one, _ := BlueGradient(1)
	if one[0] != "rgba(30, 87, 153, 0.8)" {
		t.Errorf("single color %s", one[0])
	}
}

func TestBuildChartPayloadRoundTrip(t *testing.T) {
	rows := []models.StateCount{{Name: "Texas", Count: 3}, {Name: "Ohio", Count: 1}}
	p := BuildChartPayload("Businesses by State", rows)
	ds, err := p.Dataset()
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.Validate(); err != nil {
		t.Fatal(err)
	}
	if ds.Labels[1] != "Ohio" || ds.Values[0] != 3 {
		t.Errorf("unexpected dataset %+v", ds)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"":           "All Business Types",
		"ALL":        "All Business Types",
		"vehicle":    "Vehicle Dealerships",
		"realestate": "Real Estate Professionals",
		"apartment":  "Apartment Rentals",
		"food_truck": "Food Truck",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q want %q", in, got, want)
		}
	}
}
