package httpapi

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-customfields/pkg/envelope"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/validation"
)

func (s *Server) listSchemas(c *gin.Context) {
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
	query := registry.Query{EntityType: entityType}
	if query.Page, err = intQuery(c, "page"); err != nil {
		s.fail(c, err)
		return
	}
	if query.Limit, err = intQuery(c, "limit"); err != nil {
		s.fail(c, err)
		return
	}
	if raw := strings.TrimSpace(c.Query("company_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(c, badRequest("company_id must be an integer"))
			return
		}
		query.CompanyID = &id
	}
	if raw := strings.TrimSpace(c.Query("include_system")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			s.fail(c, badRequest("include_system must be a boolean"))
			return
		}
		query.IncludeSystem = include
	}

	page, err := s.registry.ListByEntityType(c.Request.Context(), caller, query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, envelope.NewPage(page.Items, page.Total, page.Page, page.Limit))
}

func (s *Server) getSchema(c *gin.Context) {
	schema, ok := s.readableSchema(c, c.Param("id"))
	if !ok {
		return
	}
	s.ok(c, schema)
}

func (s *Server) createSchema(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var input registry.CreateInput
	if err := bindJSON(c, &input); err != nil {
		s.fail(c, err)
		return
	}
	schema, err := s.registry.Create(c.Request.Context(), caller, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, schema)
}

func (s *Server) updateSchema(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var patch registry.Patch
	if err := bindJSON(c, &patch); err != nil {
		s.fail(c, err)
		return
	}
	schema, err := s.registry.Update(c.Request.Context(), caller, c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, schema)
}

func (s *Server) deleteSchema(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.registry.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, nil)
}

func (s *Server) cloneSchema(c *gin.Context) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var input registry.CloneInput
	if err := bindJSON(c, &input); err != nil {
		s.fail(c, err)
		return
	}
	schema, err := s.registry.Clone(c.Request.Context(), caller, input)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, schema)
}

func (s *Server) schemaHistory(c *gin.Context) {
	schema, ok := s.readableSchema(c, c.Param("id"))
	if !ok {
		return
	}
	history, err := s.registry.History(c.Request.Context(), schema.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, history)
}

// validateDefinition checks a raw definition document. Problems are part of
// the successful response, not an error.
func (s *Server) validateDefinition(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, s.maxUpload))
	if err != nil {
		s.fail(c, badRequest("read body: %v", err))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		s.fail(c, badRequest("definition body is empty"))
		return
	}
	s.ok(c, validation.ValidateDefinition(body))
}

// readableSchema loads id and checks the caller may see it. On failure the
// response has been written.
func (s *Server) readableSchema(c *gin.Context, id string) (registry.Schema, bool) {
	caller, err := callerFrom(c)
	if err != nil {
		s.fail(c, err)
		return registry.Schema{}, false
	}
	schema, err := s.loadReadable(c.Request.Context(), caller, id)
	if err != nil {
		s.fail(c, err)
		return registry.Schema{}, false
	}
	return schema, true
}

func (s *Server) loadReadable(ctx context.Context, caller registry.Caller, id string) (registry.Schema, error) {
	schema, err := s.registry.Get(ctx, id)
	if err != nil {
		return registry.Schema{}, err
	}
	if !caller.CanRead(schema) {
		return registry.Schema{}, &registry.AuthorityError{SchemaID: id, Op: "read", Reason: "schema belongs to another company"}
	}
	return schema, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}
