// Package openapi converts custom-field definitions to and from OpenAPI 3
// schema components. Export lets API consumers describe entity values with
// standard tooling; import seeds a definition from an existing document.
//
// Properties of an OpenAPI object are an unordered map, so the declared
// property order travels in the "x-property-order" extension.
package openapi
