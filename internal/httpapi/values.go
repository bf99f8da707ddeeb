package httpapi

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/values"
)

// maxBatchEntities bounds the entity_ids list of a batch lookup.
const maxBatchEntities = 500

func (s *Server) entityValues(c *gin.Context) {
	entityType, err := registry.ParseEntityType(c.Param("entityType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	entityID, err := strconv.ParseInt(c.Param("entityId"), 10, 64)
	if err != nil || entityID <= 0 {
		s.fail(c, badRequest("entity id must be a positive integer"))
		return
	}
	items, err := s.values.ListByEntity(c.Request.Context(), entityType, entityID, c.Query("schema_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if items == nil {
		items = []values.EntityValue{}
	}
	s.ok(c, items)
}

func (s *Server) batchValues(c *gin.Context) {
	entityType, err := registry.ParseEntityType(c.Param("entityType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ids, err := parseIDList(c.Query("entity_ids"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.values.BatchByEntities(c.Request.Context(), entityType, ids, c.Query("schema_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, out)
}

func (s *Server) createValue(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var input values.CreateInput
	if err := bindJSON(c, &input); err != nil {
		s.fail(c, err)
		return
	}
	if strings.TrimSpace(input.SchemaID) == "" {
		s.fail(c, badRequest("schema_id is required"))
		return
	}
	value, err := s.values.Create(c.Request.Context(), caller, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, value)
}

func (s *Server) updateValue(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var input values.UpdateInput
	if err := bindJSON(c, &input); err != nil {
		s.fail(c, err)
		return
	}
	value, err := s.values.Update(c.Request.Context(), caller, c.Param("id"), input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, value)
}

func (s *Server) deleteValue(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.values.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, nil)
}

// checkValue validates a payload without storing it. A failing payload is
// still a successful response carrying ok=false.
func (s *Server) checkValue(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var payload map[string]any
	if err := bindJSON(c, &payload); err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.loadReadable(c.Request.Context(), caller, c.Param("schemaId")); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.values.Check(c.Request.Context(), c.Param("schemaId"), payload)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, result)
}

func (s *Server) searchEntities(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	entityType, err := registry.ParseEntityType(c.Param("entityType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var query values.SearchQuery
	if err := bindJSON(c, &query); err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.values.Search(c.Request.Context(), caller, entityType, query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, result)
}

func (s *Server) migrateValues(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var input values.MigrateInput
	if err := bindJSON(c, &input); err != nil {
		s.fail(c, err)
		return
	}
	report, err := s.values.Migrate(c.Request.Context(), caller, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, report)
}

func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, badRequest("entity_ids is required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxBatchEntities {
		return nil, badRequest("at most %d entity ids per batch", maxBatchEntities)
	}
	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, badRequest("entity id %q must be a positive integer", part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
