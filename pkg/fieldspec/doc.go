// Package fieldspec defines the closed vocabulary of custom-field shapes. A
// definition is always an *ObjectSpec whose properties keep the order in which
// they were authored. Every node is one of the concrete spec types declared in
// this package; consumers switch over them exhaustively instead of comparing
// type strings. Parse accepts JSON or YAML documents written in a small subset
// of JSON Schema (type, title, description, default, properties, required,
// items, uniqueItems, minLength, maxLength, pattern, format, enum, enumNames,
// minimum, maximum) and reports every structural problem at once through a
// *DefinitionError.
package fieldspec
