package dataio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/decision-spot/net-opt/internal/dataio"
)

// testWorkbook assembles an in-memory xlsx with the given sheet rows.
func testWorkbook(t *testing.T, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet %s: %v", name, err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row %d in %s: %v", i+1, name, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func validSheets() map[string][][]any {
	return map[string][][]any{
		"Plants": {
			{"ID", "Name", "City", "Latitude", "Longitude", "Fixed Cost", "Capacity", "Must Use", "Can Use"},
			{"P1", "Chicago", "Chicago", 41.8781, -87.6298, 50000, 1200, "yes", "yes"},
			{"P2", "Detroit", "Detroit", 42.3314, -83.0458, "", "", "", "no"},
		},
		"Customers": {
			{"ID", "Name", "Latitude", "Longitude", "Demand"},
			{"C1", "Columbus DC", 39.9612, -82.9988, "1,500"},
			{},
			{"C2", "Chicago DC", 41.8781, -87.6298, 250},
		},
	}
}

func TestReadWorkbook(t *testing.T) {
	buf := testWorkbook(t, validSheets())
	plants, customers, err := dataio.ReadWorkbook(buf)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(plants) != 2 {
		t.Fatalf("got %d plants, want 2", len(plants))
	}
	p1 := plants[0]
	if p1.ID != "P1" || p1.Name != "Chicago" || p1.FixedCost != 50000 || p1.Capacity != 1200 {
		t.Fatalf("unexpected plant: %+v", p1)
	}
	if !p1.MustUse || !p1.CanUse {
		t.Fatalf("P1 flags wrong: %+v", p1)
	}
	// Blank Can Use defaults to true; P2 explicitly opts out.
	if plants[1].CanUse {
		t.Fatalf("P2 should be unavailable: %+v", plants[1])
	}
	if plants[1].MustUse {
		t.Fatalf("blank Must Use should read false: %+v", plants[1])
	}

	// The empty spreadsheet row is skipped, and the thousands separator in
	// C1's demand is tolerated.
	if len(customers) != 2 {
		t.Fatalf("got %d customers, want 2", len(customers))
	}
	if customers[0].Demand != 1500 {
		t.Fatalf("C1 demand = %v, want 1500", customers[0].Demand)
	}
}

func TestReadWorkbookMissingSheet(t *testing.T) {
	sheets := validSheets()
	delete(sheets, "Customers")
	buf := testWorkbook(t, sheets)
	if _, _, err := dataio.ReadWorkbook(buf); err == nil {
		t.Fatal("expected error for missing Customers sheet")
	}
}

func TestReadWorkbookMissingColumn(t *testing.T) {
	sheets := validSheets()
	sheets["Customers"] = [][]any{
		{"ID", "Name", "Latitude", "Longitude"}, // no Demand
		{"C1", "Columbus DC", 39.9612, -82.9988},
	}
	buf := testWorkbook(t, sheets)
	_, _, err := dataio.ReadWorkbook(buf)
	if err == nil || !strings.Contains(err.Error(), "Demand") {
		t.Fatalf("expected missing-column error, got %v", err)
	}
}

func TestReadWorkbookBadNumber(t *testing.T) {
	sheets := validSheets()
	sheets["Plants"] = [][]any{
		{"ID", "Name", "Latitude", "Longitude"},
		{"P1", "Chicago", "north", -87.6298},
	}
	buf := testWorkbook(t, sheets)
	_, _, err := dataio.ReadWorkbook(buf)
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row-numbered parse error, got %v", err)
	}
}

func TestReadWorkbookNotAnXLSX(t *testing.T) {
	if _, _, err := dataio.ReadWorkbook(strings.NewReader("not a workbook")); err == nil {
		t.Fatal("expected error for invalid file")
	}
}
