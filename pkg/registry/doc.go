// Package registry owns the lifecycle of custom-field schemas: creation,
// non-destructive versioning, cross-tenant cloning and authority checks.
//
// Persistence is delegated to a Store and reads go through an optional
// Cache that the registry invalidates after every mutation of a schema id.
package registry
