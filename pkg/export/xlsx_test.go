package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/testsupport"
	"github.com/goliatone/go-customfields/pkg/values"
)

func employeeSchema(t *testing.T) registry.Schema {
	t.Helper()
	return registry.Schema{
		ID:         "sch_emp",
		Name:       "Employee extras",
		EntityType: registry.EntityEmployee,
		Definition: testsupport.Definition(t, "employee.json"),
		Version:    3,
	}
}

func sampleValues(t *testing.T) []values.EntityValue {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []values.EntityValue{
		{
			ID:       "val_2",
			EntityID: 12,
			Value: testsupport.MustJSON(t, `{
				"age": 41, "gender": "Female", "remote": false,
				"address": {"city": "Lyon"}
			}`),
			UpdatedAt: at,
		},
		{
			ID:       "val_1",
			EntityID: 7,
			Value: testsupport.MustJSON(t, `{
				"nickname": "Sam", "age": 34, "gender": "Male", "salary": 5200.5, "remote": true,
				"skills": ["go", "sql"],
				"address": {"city": "Berlin", "zip": "10115"},
				"contacts": [{"name": "Ana", "relation": "spouse"}]
			}`),
			UpdatedAt: at,
		},
	}
}

func TestColumnsFlattenObjects(t *testing.T) {
	cols := Columns(testsupport.Definition(t, "employee.json"))
	var paths []string
	for _, col := range cols {
		paths = append(paths, col.Path)
	}
	assert.Equal(t, []string{
		"nickname", "age", "gender", "email", "birthday", "phone", "badge", "salary", "remote",
		"skills", "address.city", "address.zip", "contacts",
	}, paths)

	byPath := map[string]Column{}
	for _, col := range cols {
		byPath[col.Path] = col
	}
	assert.True(t, byPath["age"].Required)
	assert.True(t, byPath["address.city"].Required)
	assert.False(t, byPath["nickname"].Required)
	assert.Equal(t, "Works remotely", byPath["remote"].Label)
	assert.Equal(t, "Zip", byPath["address.zip"].Label)
}

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, employeeSchema(t), sampleValues(t)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ValuesSheet, FieldsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ValuesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"entity_id", "value_id", "updated_at", "nickname", "age"}, rows[0][:5])

	// sorted by entity id
	assert.Equal(t, "7", rows[1][0])
	assert.Equal(t, "val_1", rows[1][1])
	assert.Equal(t, "2026-03-01T09:30:00Z", rows[1][2])
	assert.Equal(t, "12", rows[2][0])

	header := rows[0]
	cell := func(row []string, path string) string {
		for i, name := range header {
			if name == path && i < len(row) {
				return row[i]
			}
		}
		return ""
	}
	assert.Equal(t, "go, sql", cell(rows[1], "skills"))
	assert.Equal(t, "Berlin", cell(rows[1], "address.city"))
	assert.JSONEq(t, `[{"name":"Ana","relation":"spouse"}]`, cell(rows[1], "contacts"))
	assert.Equal(t, "", cell(rows[2], "skills"))

	fields, err := f.GetRows(FieldsSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"path", "label", "type", "required", "schema_id", "version"}, fields[0])
	assert.Equal(t, "age", fields[2][0])
	assert.Equal(t, "integer", fields[2][2])
	assert.Equal(t, "TRUE", fields[2][3])
	assert.Equal(t, "3", fields[2][5])
}

func TestReadRoundTrip(t *testing.T) {
	schema := employeeSchema(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, schema, sampleValues(t)))

	rows, err := Read(bytes.NewReader(buf.Bytes()), schema)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, int64(7), first.EntityID)
	assert.Equal(t, "val_1", first.ValueID)
	assert.Equal(t, map[string]any{
		"nickname": "Sam",
		"age":      int64(34),
		"gender":   "Male",
		"salary":   5200.5,
		"remote":   true,
		"skills":   []any{"go", "sql"},
		"address":  map[string]any{"city": "Berlin", "zip": "10115"},
		"contacts": []any{map[string]any{"name": "Ana", "relation": "spouse"}},
	}, first.Value)

	second := rows[1]
	assert.Equal(t, int64(12), second.EntityID)
	assert.Equal(t, false, second.Value["remote"])
	assert.NotContains(t, second.Value, "skills")
}

func TestReadRejectsBadWorkbooks(t *testing.T) {
	schema := employeeSchema(t)

	build := func(header []any, rows ...[]any) []byte {
		f := excelize.NewFile()
		defer f.Close()
		_, err := f.NewSheet(ValuesSheet)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(ValuesSheet, "A1", &header))
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			require.NoError(t, f.SetSheetRow(ValuesSheet, cell, &row))
		}
		var buf bytes.Buffer
		_, err = f.WriteTo(&buf)
		require.NoError(t, err)
		return buf.Bytes()
	}

	tests := []struct {
		name   string
		data   []byte
		layout bool
	}{
		{
			name:   "unknown column",
			data:   build([]any{"entity_id", "value_id", "updated_at", "shoe_size"}),
			layout: true,
		},
		{
			name:   "missing fixed columns",
			data:   build([]any{"age"}),
			layout: true,
		},
		{
			name: "bad integer",
			data: build([]any{"entity_id", "value_id", "updated_at", "age"}, []any{1, "", "", "old"}),
		},
		{
			name: "bad entity id",
			data: build([]any{"entity_id", "value_id", "updated_at", "age"}, []any{"x", "", "", 3}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), schema)
			require.Error(t, err)
			assert.Equal(t, tt.layout, errors.Is(err, ErrLayout))
		})
	}
}
