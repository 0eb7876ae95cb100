package batchload

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okulov/classify-console/internal/core/domain"
)

// Loader reads an operator-supplied batch file into product rows. The file
// format is picked by extension: .xlsx sheets or a .json array.
type Loader struct {
	// MaxRows caps a single batch; zero means no cap.
	MaxRows int
}

func New(maxRows int) *Loader {
	return &Loader{MaxRows: maxRows}
}

func (l *Loader) Load(ctx context.Context, path string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows []domain.Product
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		rows, err = loadXLSX(path)
	case ".json":
		rows, err = loadJSON(path)
	default:
		return nil, domain.WrapError(domain.ErrValidation, "load batch",
			fmt.Errorf("unsupported batch format %q", ext))
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "load batch",
			fmt.Errorf("file %s holds no product rows", filepath.Base(path)))
	}
	if l.MaxRows > 0 && len(rows) > l.MaxRows {
		return nil, domain.WrapError(domain.ErrValidation, "load batch",
			fmt.Errorf("batch holds %d rows, limit is %d", len(rows), l.MaxRows))
	}
	return rows, nil
}

// loadXLSX reads the first sheet. The first row is treated as a header when
// it contains a recognizable name column; otherwise column A is the product
// name, column B an optional price.
func loadXLSX(path string) ([]domain.Product, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	raw, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	cols := detectColumns(raw[0])
	body := raw
	if cols.headerRow {
		body = raw[1:]
	}

	rows := make([]domain.Product, 0, len(body))
	for _, cells := range body {
		name := cellAt(cells, cols.name)
		if name == "" {
			continue
		}
		product := domain.Product{
			Name:  name,
			Brand: cellAt(cells, cols.brand),
			Size:  cellAt(cells, cols.size),
		}
		if priceText := cellAt(cells, cols.price); priceText != "" {
			price, err := strconv.ParseFloat(strings.ReplaceAll(priceText, ",", "."), 64)
			if err == nil {
				product.Price = price
			}
		}
		rows = append(rows, product)
	}
	return rows, nil
}

type columnLayout struct {
	headerRow bool
	name      int
	price     int
	brand     int
	size      int
}

func detectColumns(header []string) columnLayout {
	layout := columnLayout{name: 0, price: 1, brand: -1, size: -1}
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "name", "product", "product_name", "наименование", "товар":
			layout.headerRow = true
			layout.name = i
		case "price", "цена":
			layout.headerRow = true
			layout.price = i
		case "brand", "бренд":
			layout.headerRow = true
			layout.brand = i
		case "size", "volume", "объем":
			layout.headerRow = true
			layout.size = i
		}
	}
	return layout
}

func cellAt(cells []string, index int) string {
	if index < 0 || index >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[index])
}

type jsonRow struct {
	Name        string  `json:"name"`
	ProductName string  `json:"product_name"`
	Type        string  `json:"type"`
	Brand       string  `json:"brand"`
	Size        string  `json:"size"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

func loadJSON(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var decoded []jsonRow
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, domain.WrapError(domain.ErrValidation, "load batch",
			fmt.Errorf("parse %s: %w", filepath.Base(path), err))
	}

	rows := make([]domain.Product, 0, len(decoded))
	for _, row := range decoded {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = strings.TrimSpace(row.ProductName)
		}
		if name == "" {
			continue
		}
		rows = append(rows, domain.Product{
			Name:     name,
			Type:     strings.TrimSpace(row.Type),
			Brand:    strings.TrimSpace(row.Brand),
			Size:     strings.TrimSpace(row.Size),
			Price:    row.Price,
			ImageURL: strings.TrimSpace(row.Image),
		})
	}
	return rows, nil
}
