// Package visibility evaluates the conditions attached to fields through the
// "visibleIf" UI hint.
//
// A rule is a boolean expression over the form value:
//
//	remote
//	gender == "Female" && age >= 18
//	!(address.city == null) || extras.admin
//
// Identifiers are dot paths from the root of the value. Comparisons accept
// string, number, boolean and null literals; bare words on the right-hand
// side are read as strings.
package visibility
