package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-customfields/pkg/export"
	"github.com/goliatone/go-customfields/pkg/openapi"
	"github.com/goliatone/go-customfields/pkg/renderers/html"
	"github.com/goliatone/go-customfields/pkg/values"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) schemaDescriptors(c *gin.Context) {
	schema, ok := s.readableSchema(c, c.Param("id"))
	if !ok {
		return
	}
	s.ok(c, s.builder.Build(schema.Definition, schema.UIHints))
}

func (s *Server) schemaOpenAPI(c *gin.Context) {
	schema, ok := s.readableSchema(c, c.Param("id"))
	if !ok {
		return
	}
	doc := openapi.Document(schema.Name, strconv.Itoa(schema.Version), schema)
	data, err := openapi.Marshal(doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, json.RawMessage(data))
}

// schemaPreview renders the form an editor would get for the schema, filled
// with the definition defaults.
func (s *Server) schemaPreview(c *gin.Context) {
	schema, ok := s.readableSchema(c, c.Param("id"))
	if !ok {
		return
	}
	page := html.Page{
		Title:       schema.Name,
		SchemaID:    schema.ID,
		Version:     schema.Version,
		Descriptors: s.builder.Build(schema.Definition, schema.UIHints),
		Values:      map[string]any{},
	}
	var buf bytes.Buffer
	if err := s.preview.Render(&buf, page); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, s.preview.ContentType(), buf.Bytes())
}

func (s *Server) exportValues(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	schema, items, err := s.values.ListBySchema(c.Request.Context(), caller, c.Param("schemaId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, schema, items); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_v%d.xlsx"`, schema.ID, schema.Version))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// importValues reads a workbook uploaded under the "file" form field and
// creates or replaces the values it lists.
func (s *Server) importValues(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		s.fail(c, badRequest("multipart file not found (field name 'file')"))
		return
	}
	defer file.Close()

	schema, err := s.loadReadable(c.Request.Context(), caller, c.Param("schemaId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := export.Read(file, schema)
	if err != nil {
		s.fail(c, badRequest("%v", err))
		return
	}
	input := make([]values.ImportRow, 0, len(rows))
	for _, row := range rows {
		input = append(input, values.ImportRow{Line: row.Line, EntityID: row.EntityID, ValueID: row.ValueID, Value: row.Value})
	}
	report, err := s.values.Import(c.Request.Context(), caller, schema.ID, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, report)
}
