package model

import (
	"github.com/goliatone/go-customfields/internal/model"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/uischema"
	"github.com/goliatone/go-customfields/pkg/widgets"
)

// Builder converts definitions plus UI hints into descriptors.
type Builder interface {
	Build(def *fieldspec.ObjectSpec, hints uischema.Hints) []Descriptor
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	labeler  func(string) string
	registry *widgets.Registry
}

// WithLabeler overrides how labels are derived for fields without a title.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *builderOptions) {
		opts.labeler = labeler
	}
}

// WithWidgetRegistry swaps the widget registry used for widget resolution.
func WithWidgetRegistry(registry *widgets.Registry) BuilderOption {
	return func(opts *builderOptions) {
		opts.registry = registry
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := builderOptions{}
	for _, opt := range options {
		opt(&cfg)
	}

	internalOpts := model.Options{}
	if cfg.labeler != nil {
		internalOpts.Labeler = cfg.labeler
	}
	if cfg.registry != nil {
		internalOpts.Widgets = cfg.registry
	}

	return model.New(internalOpts)
}
