package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/values"
)

const valueColumns = `id, schema_id, entity_type, entity_id, value, remark, created_at, updated_at`

// ValueStore implements values.Store on PostgreSQL.
type ValueStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewValueStore wraps db.
func NewValueStore(db *sql.DB, logger *zap.Logger) *ValueStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValueStore{db: db, logger: logger}
}

var _ values.Store = (*ValueStore)(nil)
var _ registry.ReferenceCounter = (*ValueStore)(nil)

func (s *ValueStore) Insert(ctx context.Context, value values.EntityValue) error {
	payload, err := encodePayload(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_field_values (`+valueColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		value.ID,
		value.SchemaID,
		string(value.EntityType),
		value.EntityID,
		payload,
		value.Remark,
		value.CreatedAt,
		value.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return values.ErrDuplicate
		}
		return fmt.Errorf("postgres: insert value %s: %w", value.ID, err)
	}
	return nil
}

func (s *ValueStore) Get(ctx context.Context, id string) (values.EntityValue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+valueColumns+` FROM custom_field_values WHERE id = $1`, id)
	value, err := scanValue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return values.EntityValue{}, values.ErrNotFound
		}
		return values.EntityValue{}, fmt.Errorf("postgres: get value %s: %w", id, err)
	}
	return value, nil
}

func (s *ValueStore) Update(ctx context.Context, value values.EntityValue) error {
	payload, err := encodePayload(value)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE custom_field_values
		SET value = $2, remark = $3, updated_at = $4
		WHERE id = $1`,
		value.ID, payload, value.Remark, value.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update value %s: %w", value.ID, err)
	}
	return expectAffected(result, values.ErrNotFound)
}

func (s *ValueStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM custom_field_values WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete value %s: %w", id, err)
	}
	return expectAffected(result, values.ErrNotFound)
}

func (s *ValueStore) ListByEntities(ctx context.Context, entityType registry.EntityType, entityIDs []int64, schemaID string) ([]values.EntityValue, error) {
	stmt := `SELECT ` + valueColumns + ` FROM custom_field_values WHERE entity_type = $1 AND entity_id = ANY($2)`
	args := []any{string(entityType), pq.Array(entityIDs)}
	if schemaID != "" {
		stmt += ` AND schema_id = $3`
		args = append(args, schemaID)
	}
	stmt += ` ORDER BY entity_id, created_at, id`
	return s.query(ctx, stmt, args...)
}

func (s *ValueStore) ListBySchema(ctx context.Context, schemaID string) ([]values.EntityValue, error) {
	return s.query(ctx, `SELECT `+valueColumns+` FROM custom_field_values WHERE schema_id = $1 ORDER BY entity_id, created_at, id`, schemaID)
}

func (s *ValueStore) EntityIDs(ctx context.Context, entityType registry.EntityType) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT entity_id FROM custom_field_values WHERE entity_type = $1 ORDER BY entity_id`, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("postgres: entity ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ValueStore) CountBySchema(ctx context.Context, schemaID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_field_values WHERE schema_id = $1`, schemaID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count values of %s: %w", schemaID, err)
	}
	return count, nil
}

func (s *ValueStore) query(ctx context.Context, stmt string, args ...any) ([]values.EntityValue, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list values: %w", err)
	}
	defer rows.Close()

	out := make([]values.EntityValue, 0)
	for rows.Next() {
		value, err := scanValue(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan value: %w", err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list values: %w", err)
	}
	return out, nil
}

func scanValue(row rowScanner) (values.EntityValue, error) {
	var (
		value      values.EntityValue
		entityType string
		payload    []byte
	)
	if err := row.Scan(
		&value.ID,
		&value.SchemaID,
		&entityType,
		&value.EntityID,
		&payload,
		&value.Remark,
		&value.CreatedAt,
		&value.UpdatedAt,
	); err != nil {
		return values.EntityValue{}, err
	}
	value.EntityType = registry.EntityType(entityType)
	if err := json.Unmarshal(payload, &value.Value); err != nil {
		return values.EntityValue{}, fmt.Errorf("decode value %s: %w", value.ID, err)
	}
	if value.Value == nil {
		value.Value = map[string]any{}
	}
	return value, nil
}

func encodePayload(value values.EntityValue) (string, error) {
	payload := value.Value
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("postgres: encode value %s: %w", value.ID, err)
	}
	return string(raw), nil
}
