package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/values"
	"github.com/goliatone/go-customfields/pkg/valuepath"
)

// Sheet names used in exported workbooks.
const (
	ValuesSheet = "Values"
	FieldsSheet = "Fields"
)

// Fixed leading columns of the values sheet.
var fixedHeaders = []string{"entity_id", "value_id", "updated_at"}

const listSeparator = ", "

// ErrLayout is returned when a workbook does not match the schema columns.
var ErrLayout = errors.New("export: workbook layout does not match schema")

// Write renders items as a workbook for schema. Items are written in entity
// id order.
func Write(w io.Writer, schema registry.Schema, items []values.EntityValue) error {
	f := excelize.NewFile()
	defer f.Close()

	columns := Columns(schema.Definition)
	index, err := f.NewSheet(ValuesSheet)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	if _, err := f.NewSheet(FieldsSheet); err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	headers := append([]string(nil), fixedHeaders...)
	for _, col := range columns {
		headers = append(headers, col.Path)
	}
	if err := writeRow(f, ValuesSheet, 1, toAny(headers)); err != nil {
		return err
	}
	if err := styleRow(f, ValuesSheet, 1, len(headers), headerStyle); err != nil {
		return err
	}

	sorted := append([]values.EntityValue(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EntityID < sorted[j].EntityID })
	for i, item := range sorted {
		row := []any{item.EntityID, item.ID, item.UpdatedAt.UTC().Format(time.RFC3339)}
		for _, col := range columns {
			v, _ := valuepath.Get(item.Value, col.Path)
			row = append(row, cellValue(col, v))
		}
		if err := writeRow(f, ValuesSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(ValuesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export: freeze header: %w", err)
	}

	if err := writeRow(f, FieldsSheet, 1, []any{"path", "label", "type", "required", "schema_id", "version"}); err != nil {
		return err
	}
	if err := styleRow(f, FieldsSheet, 1, 6, headerStyle); err != nil {
		return err
	}
	for i, col := range columns {
		if err := writeRow(f, FieldsSheet, i+2, []any{col.Path, col.Label, string(col.Kind), col.Required, schema.ID, schema.Version}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// Row is one decoded line of an edited workbook.
type Row struct {
	Line     int
	EntityID int64
	ValueID  string
	Value    map[string]any
}

// Read decodes the values sheet of a workbook written by Write. Cells are
// converted according to the column's field type; empty cells are left out.
// Rows are not validated.
func Read(r io.Reader, schema registry.Schema) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("export: open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ValuesSheet)
	if err != nil {
		return nil, fmt.Errorf("export: read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrLayout)
	}

	byPath := make(map[string]Column)
	for _, col := range Columns(schema.Definition) {
		byPath[col.Path] = col
	}
	header := rows[0]
	if len(header) < len(fixedHeaders) {
		return nil, fmt.Errorf("%w: missing fixed columns", ErrLayout)
	}
	for i, name := range fixedHeaders {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrLayout, i+1, header[i], name)
		}
	}
	for _, name := range header[len(fixedHeaders):] {
		if _, ok := byPath[name]; !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrLayout, name)
		}
	}

	var out []Row
	for i, cells := range rows[1:] {
		line := i + 2
		if len(cells) == 0 {
			continue
		}
		entityID, err := strconv.ParseInt(strings.TrimSpace(cells[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("export: line %d: entity id %q: %w", line, cells[0], err)
		}
		row := Row{Line: line, EntityID: entityID, Value: map[string]any{}}
		if len(cells) > 1 {
			row.ValueID = strings.TrimSpace(cells[1])
		}
		for c := len(fixedHeaders); c < len(cells) && c < len(header); c++ {
			raw := strings.TrimSpace(cells[c])
			if raw == "" {
				continue
			}
			col := byPath[header[c]]
			v, err := parseCell(col, raw)
			if err != nil {
				return nil, fmt.Errorf("export: line %d column %s: %w", line, col.Path, err)
			}
			if err := valuepath.Set(row.Value, col.Path, v); err != nil {
				return nil, fmt.Errorf("export: line %d column %s: %w", line, col.Path, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func cellValue(col Column, v any) any {
	if v == nil {
		return nil
	}
	switch col.Kind {
	case fieldspec.KindArray:
		list, ok := v.([]any)
		if !ok {
			return fmt.Sprint(v)
		}
		if arr, ok := col.Spec.(*fieldspec.ArraySpec); ok && isPrimitive(arr.Items) {
			parts := make([]string, len(list))
			for i, item := range list {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, listSeparator)
		}
		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return v
	}
}

func parseCell(col Column, raw string) (any, error) {
	switch spec := col.Spec.(type) {
	case *fieldspec.NumberSpec:
		if spec.Integer {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("not an integer: %q", raw)
			}
			return n, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return n, nil
	case *fieldspec.BooleanSpec:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", raw)
		}
		return b, nil
	case *fieldspec.ArraySpec:
		if !isPrimitive(spec.Items) {
			var list []any
			if err := json.Unmarshal([]byte(raw), &list); err != nil {
				return nil, fmt.Errorf("not a JSON array: %w", err)
			}
			return list, nil
		}
		var out []any
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			item, err := parseCell(Column{Spec: spec.Items}, part)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return raw, nil
	}
}

func isPrimitive(spec fieldspec.FieldSpec) bool {
	switch spec.(type) {
	case *fieldspec.StringSpec, *fieldspec.NumberSpec, *fieldspec.BooleanSpec:
		return true
	default:
		return false
	}
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("export: write row %d: %w", row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, width, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("export: style row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
