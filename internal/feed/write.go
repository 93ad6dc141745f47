package feed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

var tabularColumns = []string{
	"name", "description", "price", "compare_price", "sku", "external_id", "slug",
	"stock", "brand", "tags", "category", "images", "weight",
	"is_digital", "is_featured", "is_active", "track_inventory", "source",
}

// Write encodes rows in format. Tabular formats carry one line per product
// and cannot hold variants, dimensions or specifications.
func Write(w io.Writer, format Format, rows []domain.FeedProduct) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Page{Products: rows})
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(toRecords(rows)); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	case FormatXLSX:
		return writeXLSX(w, toRecords(rows))
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeXLSX(w io.Writer, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// toRecords lays rows out under tabularColumns followed by one attr: column
// per attribute name, sorted.
func toRecords(rows []domain.FeedProduct) [][]string {
	var attrNames []string
	for _, row := range rows {
		for name := range row.Attributes {
			if !slices.Contains(attrNames, name) {
				attrNames = append(attrNames, name)
			}
		}
	}
	slices.Sort(attrNames)

	header := slices.Clone(tabularColumns)
	for _, name := range attrNames {
		header = append(header, attributePrefix+name)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Description,
			formatFloat(row.Price),
			formatFloat(row.ComparePrice),
			row.SKU,
			row.ExternalID.Value,
			row.Slug,
			formatInt(row.Stock),
			row.Brand,
			strings.Join(row.Tags, "|"),
			strings.Join(row.Category.Values, " > "),
			strings.Join(row.Images, "|"),
			formatFloat(row.Weight),
			formatBool(row.IsDigital),
			formatBool(row.IsFeatured),
			formatBool(row.IsActive),
			formatBool(row.TrackInventory),
			row.Source,
		}
		for _, name := range attrNames {
			record = append(record, strings.Join(row.Attributes[name], "|"))
		}
		records = append(records, record)
	}
	return records
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
