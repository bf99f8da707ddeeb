// Package validation turns a field definition into a pure validator. Build
// refuses malformed definitions; Check walks a candidate value once and
// reports every failure keyed by its dotted path ("address.city",
// "contacts.1.phone").
package validation
