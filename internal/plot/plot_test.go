package plot_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/plot"
)

func midwestScenario() model.Scenario {
	return model.Scenario{
		Name: "midwest",
		Plants: []model.Plant{
			{ID: "P1", Name: "Chicago", Latitude: 41.8781, Longitude: -87.6298, CanUse: true},
		},
		Customers: []model.Customer{
			{ID: "C1", Name: "Detroit DC", Latitude: 42.3314, Longitude: -83.0458, Demand: 100},
		},
	}
}

func TestScope(t *testing.T) {
	cases := []struct {
		name   string
		lat    [2]float64
		lon    [2]float64
		expect string
	}{
		{"continental us", [2]float64{30, 47}, [2]float64{-120, -75}, "usa"},
		{"us plus alaska", [2]float64{30, 65}, [2]float64{-150, -75}, "north america"},
		{"western europe", [2]float64{40, 60}, [2]float64{-5, 20}, "europe"},
		{"brazil", [2]float64{-25, -5}, [2]float64{-60, -40}, "south america"},
		{"transatlantic", [2]float64{35, 52}, [2]float64{-90, 5}, "world"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := plot.Scope(tc.lat, tc.lon); got != tc.expect {
				t.Fatalf("Scope(%v, %v) = %q, want %q", tc.lat, tc.lon, got, tc.expect)
			}
		})
	}
}

func TestInputMapHTML(t *testing.T) {
	html, err := plot.InputMapHTML("Input Map", midwestScenario())
	if err != nil {
		t.Fatalf("InputMapHTML: %v", err)
	}
	s := string(html)
	for _, want := range []string{"<title>Input Map</title>", "cdn.plot.ly", "scattergeo", "Chicago", "Detroit DC", `"scope":"usa"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	// Input maps carry no lane traces.
	if strings.Contains(s, `"mode":"lines"`) {
		t.Fatal("input map should not contain lanes")
	}
}

func TestSolutionMapHTML(t *testing.T) {
	lanes := []model.Lane{
		{Lane: "P1-C1", Origin: "Chicago", Destination: "Detroit DC", PlantID: "P1", CustomerID: "C1",
			OriginLat: 41.8781, OriginLon: -87.6298, DestLat: 42.3314, DestLon: -83.0458},
		{Lane: "P1-C2", Origin: "Chicago", Destination: "Columbus DC", PlantID: "P1", CustomerID: "C2",
			OriginLat: 41.8781, OriginLon: -87.6298, DestLat: 39.9612, DestLon: -82.9988},
	}
	html, err := plot.SolutionMapHTML("Solution Map", lanes)
	if err != nil {
		t.Fatalf("SolutionMapHTML: %v", err)
	}
	s := string(html)
	if !strings.Contains(s, `"mode":"lines"`) {
		t.Fatal("solution map missing lane traces")
	}
	// P1 appears on two lanes but should be plotted once.
	if n := strings.Count(s, `"Chicago"`); n != 1 {
		t.Fatalf("origin marker repeated: %d occurrences", n)
	}
}

func TestDefaultTitleUsesScope(t *testing.T) {
	html, err := plot.InputMapHTML("", midwestScenario())
	if err != nil {
		t.Fatalf("InputMapHTML: %v", err)
	}
	if !strings.Contains(string(html), "<title>usa network</title>") {
		t.Fatal("expected scope-derived title")
	}
}

func TestWriteHTMLFile(t *testing.T) {
	html, err := plot.InputMapHTML("Input Map", midwestScenario())
	if err != nil {
		t.Fatalf("InputMapHTML: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Input Map.html")
	if err := plot.WriteHTMLFile(path, html); err != nil {
		t.Fatalf("WriteHTMLFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(html) {
		t.Fatal("file contents differ from rendered html")
	}
}
