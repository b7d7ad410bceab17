// Package dataio loads scenario location tables from spreadsheets and CSV
// files, and run parameters from YAML.
package dataio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/decision-spot/net-opt/internal/model"
)

// Sheet and column names expected in input workbooks.
const (
	SheetPlants    = "Plants"
	SheetCustomers = "Customers"
)

// ReadWorkbook parses an xlsx workbook with Plants and Customers sheets.
func ReadWorkbook(r io.Reader) ([]model.Plant, []model.Customer, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readSheets(f)
}

// ReadWorkbookFile parses an xlsx workbook from disk.
func ReadWorkbookFile(path string) ([]model.Plant, []model.Customer, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readSheets(f)
}

func readSheets(f *excelize.File) ([]model.Plant, []model.Customer, error) {
	plantRows, err := f.GetRows(SheetPlants)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", SheetPlants, err)
	}
	custRows, err := f.GetRows(SheetCustomers)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", SheetCustomers, err)
	}
	plants, err := parsePlants(plantRows)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", SheetPlants, err)
	}
	customers, err := parseCustomers(custRows)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", SheetCustomers, err)
	}
	return plants, customers, nil
}

// header builds a case-insensitive column index from the first row.
type header map[string]int

func newHeader(row []string) header {
	h := header{}
	for i, cell := range row {
		h[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	return h
}

func (h header) cell(row []string, name string) string {
	i, ok := h[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h[strings.ToLower(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func parsePlants(rows [][]string) ([]model.Plant, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}
	h := newHeader(rows[0])
	if err := h.require("ID", "Name", "Latitude", "Longitude"); err != nil {
		return nil, err
	}
	var plants []model.Plant
	for rn, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		lat, err := parseFloat(h.cell(row, "Latitude"))
		if err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", rn+2, err)
		}
		lon, err := parseFloat(h.cell(row, "Longitude"))
		if err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", rn+2, err)
		}
		p := model.Plant{
			ID:        h.cell(row, "ID"),
			Name:      h.cell(row, "Name"),
			City:      h.cell(row, "City"),
			Latitude:  lat,
			Longitude: lon,
			MustUse:   parseBool(h.cell(row, "Must Use")),
			CanUse:    true,
		}
		if v := h.cell(row, "Can Use"); v != "" {
			p.CanUse = parseBool(v)
		}
		if v := h.cell(row, "Fixed Cost"); v != "" {
			if p.FixedCost, err = parseFloat(v); err != nil {
				return nil, fmt.Errorf("row %d: fixed cost: %w", rn+2, err)
			}
		}
		if v := h.cell(row, "Capacity"); v != "" {
			if p.Capacity, err = parseFloat(v); err != nil {
				return nil, fmt.Errorf("row %d: capacity: %w", rn+2, err)
			}
		}
		plants = append(plants, p)
	}
	return plants, nil
}

func parseCustomers(rows [][]string) ([]model.Customer, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}
	h := newHeader(rows[0])
	if err := h.require("ID", "Name", "Latitude", "Longitude", "Demand"); err != nil {
		return nil, err
	}
	var customers []model.Customer
	for rn, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		lat, err := parseFloat(h.cell(row, "Latitude"))
		if err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", rn+2, err)
		}
		lon, err := parseFloat(h.cell(row, "Longitude"))
		if err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", rn+2, err)
		}
		dmd, err := parseFloat(h.cell(row, "Demand"))
		if err != nil {
			return nil, fmt.Errorf("row %d: demand: %w", rn+2, err)
		}
		customers = append(customers, model.Customer{
			ID:        h.cell(row, "ID"),
			Name:      h.cell(row, "Name"),
			Latitude:  lat,
			Longitude: lon,
			Demand:    dmd,
		})
	}
	return customers, nil
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}
