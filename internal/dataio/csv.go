package dataio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/decision-spot/net-opt/internal/model"
)

// ReadPlantsCSV parses a plants table with the same column names as the
// workbook's Plants sheet.
func ReadPlantsCSV(r io.Reader) ([]model.Plant, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return parsePlants(rows)
}

// ReadCustomersCSV parses a customers table with the same column names as
// the workbook's Customers sheet.
func ReadCustomersCSV(r io.Reader) ([]model.Customer, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return parseCustomers(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}
