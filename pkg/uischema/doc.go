// Package uischema parses the advisory UI hints attached to a custom-field
// schema. Hints are keyed by dotted field path and may be authored either
// flat ("address.city": {"placeholder": "City"}) or nested in the react
// json-schema-form style ({"address": {"city": {"ui:placeholder": "City"}}}).
// Hints never influence validation.
package uischema
