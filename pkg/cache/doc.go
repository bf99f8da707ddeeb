// Package cache provides the schema read cache used by the registry. A KV
// backend (in-process or Redis) stores JSON-encoded schema records keyed by
// id, and SchemaCache adapts it to registry.Cache.
package cache
