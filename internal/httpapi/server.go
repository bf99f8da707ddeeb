// Package httpapi exposes the schema registry and entity values over HTTP.
// Every JSON response uses the envelope package shape; schema previews and
// spreadsheet exports are served raw.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/model"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/renderers/html"
	"github.com/goliatone/go-customfields/pkg/values"
)

// Caller identity headers.
const (
	HeaderCompanyID  = "X-Company-ID"
	HeaderPrivileged = "X-Privileged"
	HeaderRequestID  = "X-Request-ID"
)

const defaultMaxUpload = 10 << 20

// Server routes requests onto the registry and value services.
type Server struct {
	registry  *registry.Registry
	values    *values.Service
	builder   model.Builder
	preview   *html.Renderer
	logger    *zap.Logger
	maxUpload int64
	engine    *gin.Engine
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder replaces the descriptor builder used by the descriptor and
// preview endpoints.
func WithBuilder(builder model.Builder) Option {
	return func(s *Server) {
		if builder != nil {
			s.builder = builder
		}
	}
}

// WithPreviewRenderer replaces the HTML preview renderer.
func WithPreviewRenderer(renderer *html.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.preview = renderer
		}
	}
}

// WithMaxUpload caps the size of spreadsheet imports in bytes.
func WithMaxUpload(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxUpload = limit
		}
	}
}

// New builds the router. It fails only when the default preview template
// cannot be compiled.
func New(reg *registry.Registry, svc *values.Service, options ...Option) (*Server, error) {
	s := &Server{
		registry:  reg,
		values:    svc,
		builder:   model.NewBuilder(),
		logger:    zap.NewNop(),
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.preview == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, err
		}
		s.preview = renderer
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(s.requestID(), s.accessLog(), s.recovery())
	engine.NoRoute(func(c *gin.Context) {
		s.fail(c, errRoute(http.StatusNotFound, "route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		s.fail(c, errRoute(http.StatusMethodNotAllowed, "method not allowed"))
	})
	s.routes(engine)
	s.engine = engine
	return s, nil
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) {
	schema := r.Group("/schema")
	{
		schema.GET("/list/:entityType", s.listSchemas)
		schema.GET("/get/:id", s.getSchema)
		schema.POST("/create", s.createSchema)
		schema.POST("/update/:id", s.updateSchema)
		schema.POST("/delete/:id", s.deleteSchema)
		schema.POST("/clone", s.cloneSchema)
		schema.GET("/history/:id", s.schemaHistory)
		schema.POST("/validate", s.validateDefinition)
		schema.GET("/descriptors/:id", s.schemaDescriptors)
		schema.GET("/openapi/:id", s.schemaOpenAPI)
		schema.GET("/preview/:id", s.schemaPreview)
	}

	value := r.Group("/value")
	{
		value.GET("/entity/:entityType/:entityId", s.entityValues)
		value.GET("/batch/:entityType", s.batchValues)
		value.POST("/create", s.createValue)
		value.POST("/update/:id", s.updateValue)
		value.POST("/delete/:id", s.deleteValue)
		value.POST("/check/:schemaId", s.checkValue)
		value.POST("/search/:entityType", s.searchEntities)
		value.POST("/migrate", s.migrateValues)
		value.GET("/export/:schemaId", s.exportValues)
		value.POST("/import/:schemaId", s.importValues)
	}
}
