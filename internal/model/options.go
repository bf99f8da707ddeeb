package model

import "github.com/goliatone/go-customfields/pkg/widgets"

// Options configures the behaviour of the Builder. Options are constructed by
// the public adapter in pkg/model and passed into New.
type Options struct {
	Labeler func(string) string
	Widgets *widgets.Registry
}

func defaultOptions() Options {
	return Options{
		Labeler: func(name string) string { return name },
		Widgets: widgets.NewRegistry(),
	}
}
