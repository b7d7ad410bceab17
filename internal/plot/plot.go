// Package plot renders input and solution networks as standalone HTML maps
// using plotly scattergeo traces.
package plot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/decision-spot/net-opt/internal/model"
)

const plotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"

type trace map[string]any

type point struct {
	name     string
	lat, lon float64
}

// InputMapHTML renders plant and customer locations without lanes.
func InputMapHTML(title string, sc model.Scenario) ([]byte, error) {
	var plants, customers []point
	for _, p := range sc.Plants {
		plants = append(plants, point{p.Name, p.Latitude, p.Longitude})
	}
	for _, c := range sc.Customers {
		customers = append(customers, point{c.Name, c.Latitude, c.Longitude})
	}
	return networkHTML(title, plants, customers, nil)
}

// SolutionMapHTML renders the solved network with its assignment lanes.
func SolutionMapHTML(title string, lanes []model.Lane) ([]byte, error) {
	var plants, customers []point
	seen := map[string]bool{}
	for _, l := range lanes {
		if !seen["o|"+l.PlantID] {
			seen["o|"+l.PlantID] = true
			plants = append(plants, point{l.Origin, l.OriginLat, l.OriginLon})
		}
		if !seen["d|"+l.CustomerID] {
			seen["d|"+l.CustomerID] = true
			customers = append(customers, point{l.Destination, l.DestLat, l.DestLon})
		}
	}
	return networkHTML(title, plants, customers, lanes)
}

// WriteHTMLFile renders to path, e.g. "Solution Map.html".
func WriteHTMLFile(path string, html []byte) error {
	return os.WriteFile(path, html, 0o644)
}

func networkHTML(title string, plants, customers []point, lanes []model.Lane) ([]byte, error) {
	data := []trace{
		markerTrace("Plant", plants, map[string]any{
			"size":   20,
			"symbol": "triangle-up",
			"color":  "blue",
			"line":   map[string]any{"width": 3, "color": "rgba(68, 68, 68, 0)"},
		}),
		markerTrace("Customer", customers, map[string]any{
			"size":   8,
			"symbol": "circle",
			"color":  "orange",
			"line":   map[string]any{"width": 3, "color": "rgba(68, 68, 68, 0)"},
		}),
	}
	for _, l := range lanes {
		data = append(data, trace{
			"type":       "scattergeo",
			"lon":        []float64{l.OriginLon, l.DestLon},
			"lat":        []float64{l.OriginLat, l.DestLat},
			"mode":       "lines",
			"line":       map[string]any{"width": 2, "color": "green"},
			"opacity":    0.8,
			"showlegend": false,
		})
	}

	latRng, lonRng := latLonRange(plants, customers)
	scope := Scope(latRng, lonRng)
	if title == "" {
		title = fmt.Sprintf("%s network", scope)
	}
	layout := map[string]any{
		"title":      map[string]any{"text": title},
		"showlegend": true,
		"geo": map[string]any{
			"scope":        scope,
			"showland":     true,
			"landcolor":    "rgb(243, 243, 243)",
			"countrycolor": "rgb(204, 204, 204)",
		},
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	layoutJSON, err := json.Marshal(layout)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, map[string]any{
		"Title":  title,
		"CDN":    plotlyCDN,
		"Data":   template.JS(dataJSON),
		"Layout": template.JS(layoutJSON),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func markerTrace(name string, pts []point, marker map[string]any) trace {
	lats := make([]float64, 0, len(pts))
	lons := make([]float64, 0, len(pts))
	texts := make([]string, 0, len(pts))
	for _, p := range pts {
		lats = append(lats, p.lat)
		lons = append(lons, p.lon)
		texts = append(texts, p.name)
	}
	return trace{
		"type":   "scattergeo",
		"lon":    lons,
		"lat":    lats,
		"text":   texts,
		"name":   name,
		"mode":   "markers",
		"marker": marker,
	}
}

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html lang="en"><head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<script src="{{.CDN}}"></script>
<style>html,body,#map{margin:0;height:100%}</style>
</head><body>
<div id="map"></div>
<script>
Plotly.newPlot('map', {{.Data}}, {{.Layout}}, {responsive: true});
</script>
</body></html>
`))

func latLonRange(groups ...[]point) (latRng, lonRng [2]float64) {
	latRng = [2]float64{90, -90}
	lonRng = [2]float64{180, -180}
	for _, pts := range groups {
		for _, p := range pts {
			if p.lat < latRng[0] {
				latRng[0] = p.lat
			}
			if p.lat > latRng[1] {
				latRng[1] = p.lat
			}
			if p.lon < lonRng[0] {
				lonRng[0] = p.lon
			}
			if p.lon > lonRng[1] {
				lonRng[1] = p.lon
			}
		}
	}
	return latRng, lonRng
}

// Scope picks the plotly geographic scope that covers the data's bounding
// box, preferring the tightest of the regions we care about.
func Scope(latRng, lonRng [2]float64) string {
	regions := []struct {
		name     string
		lat, lon [2]float64
	}{
		{"usa", [2]float64{24, 55}, [2]float64{-127, -50}},
		{"north america", [2]float64{15, 85}, [2]float64{-170, -50}},
		{"europe", [2]float64{30, 80}, [2]float64{-20, 70}},
		{"south america", [2]float64{-60, 12}, [2]float64{-81, -34}},
	}
	for _, r := range regions {
		if latRng[0] >= r.lat[0] && latRng[1] <= r.lat[1] &&
			lonRng[0] >= r.lon[0] && lonRng[1] <= r.lon[1] {
			return r.name
		}
	}
	return "world"
}
