package batchload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okulov/classify-console/internal/core/domain"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "batch.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoadXLSXWithHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"name", "price", "brand"},
		{"milk 3.2%", "89.90", "prostokvashino"},
		{"", "10", "skip-me"},
		{"rye bread", "54", ""},
	})

	rows, err := New(0).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "milk 3.2%" || rows[0].Price != 89.90 || rows[0].Brand != "prostokvashino" {
		t.Fatalf("row 0 wrong: %+v", rows[0])
	}
	if rows[1].Name != "rye bread" || rows[1].Price != 54 {
		t.Fatalf("row 1 wrong: %+v", rows[1])
	}
}

func TestLoadXLSXWithoutHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"buckwheat 900g", "120,50"},
		{"sunflower oil"},
	})

	rows, err := New(0).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Price != 120.50 {
		t.Fatalf("comma decimal not parsed: %+v", rows[0])
	}
}

func TestLoadJSONAcceptsLegacyAlias(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	content := `[
		{"product_name": "green tea", "type": "beverages", "price": 210},
		{"name": "  ", "type": "noise"},
		{"name": "cheddar", "brand": "cheese co"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	rows, err := New(0).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "green tea" || rows[0].Type != "beverages" {
		t.Fatalf("legacy alias row wrong: %+v", rows[0])
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := New(0).Load(context.Background(), "batch.csv")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadEnforcesRowLimit(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"first"},
		{"second"},
		{"third"},
	})
	_, err := New(2).Load(context.Background(), path)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadRejectsEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	_, err := New(0).Load(context.Background(), path)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
