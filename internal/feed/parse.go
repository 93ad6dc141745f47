// Package feed turns supplier feeds into domain.FeedProduct rows: uploaded
// CSV, XLSX and JSON files, and paginated remote JSON feeds.
package feed

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
	apperrors "github.com/najeemsuhail/ecommerce-store-sub000/pkg/errors"
)

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// attributePrefix marks tabular columns that hold attribute values, as in
// "attr:Color".
const attributePrefix = "attr:"

// FormatFromFilename picks the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", apperrors.InvalidInput("only CSV, XLSX and JSON files are supported")
	}
}

// Parse reads every product row from r.
func Parse(r io.Reader, format Format) ([]domain.FeedProduct, error) {
	switch format {
	case FormatJSON:
		return parseJSON(r)
	case FormatCSV:
		records, err := readCSV(r)
		if err != nil {
			return nil, err
		}
		return fromRecords(records)
	case FormatXLSX:
		records, err := readXLSX(r)
		if err != nil {
			return nil, err
		}
		return fromRecords(records)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported format %q", format))
	}
}

// parseJSON accepts either a bare array of products or {"products": [...]}.
func parseJSON(r io.Reader) ([]domain.FeedProduct, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json feed: %w", err)
	}
	data = bytes.TrimSpace(data)

	var rows []domain.FeedProduct
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, apperrors.InvalidInput("invalid json feed: " + err.Error())
		}
		return rows, nil
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, apperrors.InvalidInput("invalid json feed: " + err.Error())
	}
	return page.Products, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.InvalidInput("invalid csv file: " + err.Error())
	}
	return records, nil
}

// readXLSX reads the "Products" sheet, or the first sheet when there is none.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid xlsx file: " + err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.InvalidInput("xlsx file has no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Products") {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// normalizeHeader lowercases a column name and drops separators and the
// trailing required marker, so "External ID *" and "externalId" both become
// "externalid". Attribute columns keep their attribute name as written.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSpace(strings.TrimSuffix(h, "*"))
	if len(h) > len(attributePrefix) && strings.EqualFold(h[:len(attributePrefix)], attributePrefix) {
		return attributePrefix + strings.TrimSpace(h[len(attributePrefix):])
	}
	h = strings.ToLower(h)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// fromRecords maps a header row plus data rows onto feed products. Blank
// lines are skipped.
func fromRecords(records [][]string) ([]domain.FeedProduct, error) {
	if len(records) == 0 {
		return []domain.FeedProduct{}, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
	}

	rows := make([]domain.FeedProduct, 0, len(records)-1)
	for n, record := range records[1:] {
		cells := make(map[string]string, len(headers))
		blank := true
		for i, v := range record {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			cells[headers[i]] = v
		}
		if blank {
			continue
		}

		row, err := rowFromCells(cells)
		if err != nil {
			// Line numbers are 1-based and count the header.
			return nil, apperrors.InvalidInput(fmt.Sprintf("line %d: %s", n+2, err.Error()))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowFromCells(cells map[string]string) (domain.FeedProduct, error) {
	row := domain.FeedProduct{
		Name:            cells["name"],
		Description:     cells["description"],
		SKU:             cells["sku"],
		Slug:            cells["slug"],
		Brand:           cells["brand"],
		VideoURL:        cells["videourl"],
		MetaTitle:       cells["metatitle"],
		MetaDescription: cells["metadescription"],
		Source:          cells["source"],
		Tags:            splitList(cells["tags"], "|,"),
		Images:          splitList(cells["images"], "|,"),
	}
	if v, ok := cells["externalid"]; ok && v != "" {
		row.ExternalID = domain.Some(v)
	}
	if v := cells["category"]; v != "" {
		row.Category = domain.List(splitList(v, "|>")...)
	}

	var errs []error
	row.Price = parseFloat(cells, "price", &errs)
	row.ComparePrice = parseFloat(cells, "compareprice", &errs)
	row.Weight = parseFloat(cells, "weight", &errs)
	row.Stock = parseInt(cells, "stock", &errs)
	row.IsDigital = parseBool(cells, "isdigital", &errs)
	row.IsFeatured = parseBool(cells, "isfeatured", &errs)
	row.IsActive = parseBool(cells, "isactive", &errs)
	row.TrackInventory = parseBool(cells, "trackinventory", &errs)
	if len(errs) > 0 {
		return domain.FeedProduct{}, errors.Join(errs...)
	}

	for key, v := range cells {
		name, ok := strings.CutPrefix(key, attributePrefix)
		if !ok || name == "" || v == "" {
			continue
		}
		if row.Attributes == nil {
			row.Attributes = make(map[string][]string)
		}
		row.Attributes[name] = splitList(v, "|")
	}
	return row, nil
}

// splitList splits s on any of seps and drops empty parts.
func splitList(s, seps string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloat(cells map[string]string, key string, errs *[]error) *float64 {
	v := cells[key]
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s %q is not a number", key, v))
		return nil
	}
	return &f
}

func parseInt(cells map[string]string, key string, errs *[]error) *int {
	v := cells[key]
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s %q is not an integer", key, v))
		return nil
	}
	return &n
}

func parseBool(cells map[string]string, key string, errs *[]error) *bool {
	v := strings.ToLower(cells[key])
	switch v {
	case "":
		return nil
	case "yes", "y":
		v = "true"
	case "no", "n":
		v = "false"
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s %q is not a boolean", key, cells[key]))
		return nil
	}
	return &b
}
