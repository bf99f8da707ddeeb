// Package memory provides in-process schema and entity value stores. They
// back the CLI, the default server configuration and most tests.
package memory
