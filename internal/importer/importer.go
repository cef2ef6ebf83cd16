package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"farmstand/internal/domain"
	productrepo "farmstand/internal/repository/product"
	"github.com/shopspring/decimal"
)

type CatalogWriter interface {
	UpsertVendor(ctx context.Context, displayName string) (*domain.Vendor, error)
	Upsert(ctx context.Context, in productrepo.UpsertInput) (*domain.CatalogEntry, error)
}

// CSVImporter reads vendor catalog exports and upserts vendors and their products.
// Expected headers: vendor, sku, name, unit, price, currency. price is in major units ("4.50").
type CSVImporter struct {
	reader          *csv.Reader
	catalog         CatalogWriter
	defaultCurrency string
}

func NewCSVImporter(r io.Reader, catalog CatalogWriter, defaultCurrency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:          csvr,
		catalog:         catalog,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

type csvRow struct {
	Line       int
	Vendor     string
	SKU        string
	Name       string
	Unit       string
	PriceMinor int64
	Currency   string
}

// Run parses CSV rows and upserts products keyed by (vendor, sku). Blank rows are skipped.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"vendor", "sku", "name", "price"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		vendors  = map[string]string{}
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index, line, i.defaultCurrency)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}
		if err := i.save(ctx, vendors, row); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, vendors map[string]string, row *csvRow) error {
	vendorID, ok := vendors[row.Vendor]
	if !ok {
		v, err := i.catalog.UpsertVendor(ctx, row.Vendor)
		if err != nil {
			return fmt.Errorf("upsert vendor %q: %w", row.Vendor, err)
		}
		vendorID = v.ID
		vendors[row.Vendor] = vendorID
	}

	_, err := i.catalog.Upsert(ctx, productrepo.UpsertInput{
		VendorID:   vendorID,
		SKU:        row.SKU,
		Name:       row.Name,
		Unit:       row.Unit,
		PriceMinor: row.PriceMinor,
		Currency:   row.Currency,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.SKU, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int, defaultCurrency string) (*csvRow, error) {
	row := &csvRow{
		Line:     line,
		Vendor:   pick(record, index, "vendor"),
		SKU:      pick(record, index, "sku"),
		Name:     pick(record, index, "name"),
		Unit:     pick(record, index, "unit"),
		Currency: strings.ToUpper(pick(record, index, "currency")),
	}
	price := pick(record, index, "price")

	if row.Vendor == "" && row.SKU == "" && row.Name == "" && price == "" {
		return nil, nil
	}
	if row.Vendor == "" || row.SKU == "" || row.Name == "" || price == "" {
		return nil, fmt.Errorf("row %d: vendor, sku, name and price are required", line)
	}
	if row.Currency == "" {
		row.Currency = defaultCurrency
	}

	minor, err := toMinorUnits(price)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", line, err)
	}
	row.PriceMinor = minor
	return row, nil
}

// toMinorUnits converts "4.50" to 450. More than two decimal places is rejected rather than rounded.
func toMinorUnits(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("price %q has more than two decimals", raw)
	}
	if !minor.IsPositive() {
		return 0, fmt.Errorf("price %q must be positive", raw)
	}
	return minor.IntPart(), nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
