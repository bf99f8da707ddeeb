// Package model exposes the field descriptors renderers consume. Builders
// reside in internal/model but return the types defined here. Each descriptor
// carries the resolved widget kind, a label (the field title, falling back to
// the property name), the constraint echo as canonical validation rules
// (min/max, minLength/maxLength, pattern, uniqueItems), enum options with
// their labels, and nested descriptors for fieldsets and repeaters. Fields
// that cannot be rendered carry an Error instead of a widget.
package model
