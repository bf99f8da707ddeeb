package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

const schemaColumns = `id, name, entity_type, definition, ui_hints, company_id, is_system, version, parent_schema_id, remark, created_at, updated_at`

// SchemaStore implements registry.Store on PostgreSQL.
type SchemaStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSchemaStore wraps db.
func NewSchemaStore(db *sql.DB, logger *zap.Logger) *SchemaStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaStore{db: db, logger: logger}
}

var _ registry.Store = (*SchemaStore)(nil)

func (s *SchemaStore) Insert(ctx context.Context, schema registry.Schema) error {
	definition, hints, err := encodeSchemaDocs(schema)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_field_schemas (`+schemaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		schema.ID,
		schema.Name,
		string(schema.EntityType),
		definition,
		hints,
		nullInt64(schema.CompanyID),
		schema.IsSystem,
		schema.Version,
		nullString(schema.ParentSchemaID),
		schema.Remark,
		schema.CreatedAt,
		schema.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert schema %s: %w", schema.ID, err)
	}
	return nil
}

func (s *SchemaStore) Get(ctx context.Context, id string) (registry.Schema, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schemaColumns+` FROM custom_field_schemas WHERE id = $1`, id)
	schema, err := scanSchema(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.Schema{}, registry.ErrNotFound
		}
		return registry.Schema{}, fmt.Errorf("postgres: get schema %s: %w", id, err)
	}
	return schema, nil
}

// Update rewrites the mutable metadata of a schema record. Definitions and
// hints never change in place.
func (s *SchemaStore) Update(ctx context.Context, schema registry.Schema) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE custom_field_schemas
		SET name = $2, remark = $3, updated_at = $4
		WHERE id = $1`,
		schema.ID, schema.Name, schema.Remark, schema.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update schema %s: %w", schema.ID, err)
	}
	return expectAffected(result, registry.ErrNotFound)
}

func (s *SchemaStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM custom_field_schemas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete schema %s: %w", id, err)
	}
	return expectAffected(result, registry.ErrNotFound)
}

func (s *SchemaStore) List(ctx context.Context, query registry.Query) ([]registry.Schema, int, error) {
	where, args := listFilter(query)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_field_schemas WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: count schemas: %w", err)
	}

	stmt := `SELECT ` + schemaColumns + ` FROM custom_field_schemas WHERE ` + where + ` ORDER BY updated_at DESC, id DESC`
	if query.Limit > 0 {
		args = append(args, query.Limit, query.Offset())
		stmt += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list schemas: %w", err)
	}
	defer rows.Close()

	items := make([]registry.Schema, 0)
	for rows.Next() {
		schema, err := scanSchema(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: scan schema: %w", err)
		}
		items = append(items, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: list schemas: %w", err)
	}
	s.logger.Debug("schemas listed",
		zap.String("entity_type", string(query.EntityType)),
		zap.Int("total", total),
		zap.Int("returned", len(items)),
	)
	return items, total, nil
}

// listFilter mirrors registry.Query.Matches.
func listFilter(query registry.Query) (string, []any) {
	clauses := []string{"entity_type = $1"}
	args := []any{string(query.EntityType)}

	switch {
	case query.SystemOnly:
		clauses = append(clauses, "is_system = TRUE")
	case query.CompanyID != nil:
		args = append(args, *query.CompanyID)
		tenant := fmt.Sprintf("(is_system = FALSE AND company_id = $%d)", len(args))
		if query.IncludeSystem {
			tenant = "(" + tenant + " OR is_system = TRUE)"
		}
		clauses = append(clauses, tenant)
	case !query.IncludeSystem:
		clauses = append(clauses, "is_system = FALSE")
	}
	return strings.Join(clauses, " AND "), args
}

func scanSchema(row rowScanner) (registry.Schema, error) {
	var (
		schema     registry.Schema
		entityType string
		definition []byte
		hints      []byte
		companyID  sql.NullInt64
		parentID   sql.NullString
	)
	if err := row.Scan(
		&schema.ID,
		&schema.Name,
		&entityType,
		&definition,
		&hints,
		&companyID,
		&schema.IsSystem,
		&schema.Version,
		&parentID,
		&schema.Remark,
		&schema.CreatedAt,
		&schema.UpdatedAt,
	); err != nil {
		return registry.Schema{}, err
	}
	schema.EntityType = registry.EntityType(entityType)

	def, err := fieldspec.Parse(definition)
	if err != nil {
		return registry.Schema{}, fmt.Errorf("decode definition of %s: %w", schema.ID, err)
	}
	schema.Definition = def
	if len(hints) > 0 {
		parsed, err := uischema.Parse(hints)
		if err != nil {
			return registry.Schema{}, fmt.Errorf("decode hints of %s: %w", schema.ID, err)
		}
		schema.UIHints = parsed
	}
	if companyID.Valid {
		id := companyID.Int64
		schema.CompanyID = &id
	}
	if parentID.Valid {
		parent := parentID.String
		schema.ParentSchemaID = &parent
	}
	return schema, nil
}

// encodeSchemaDocs returns JSON text; lib/pq would send []byte as bytea.
func encodeSchemaDocs(schema registry.Schema) (string, sql.NullString, error) {
	definition, err := schema.Definition.MarshalJSON()
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("postgres: encode definition of %s: %w", schema.ID, err)
	}
	if len(schema.UIHints) == 0 {
		return string(definition), sql.NullString{}, nil
	}
	hints, err := json.Marshal(schema.UIHints)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("postgres: encode hints of %s: %w", schema.ID, err)
	}
	return string(definition), sql.NullString{String: string(hints), Valid: true}, nil
}

func expectAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
