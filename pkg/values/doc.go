// Package values stores the custom-field data of entity instances. Every
// value is pinned to the schema id it was created against and is always
// validated with that schema's rules, even after newer versions exist.
// Moving values to another schema only happens through Migrate.
package values
