package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

const pricingColumns = `
	id, tool, engine, model_key, version, name, description, status,
	pricing, modes, aspect_ratios,
	requires_image, supports_end_image, prompt_optional,
	created_at, updated_at`

// PricingRepository handles pricing model database operations with caching
type PricingRepository struct {
	db    *DB
	cache *LRUCache[*models.PricingModel]
}

// NewPricingRepository creates a new pricing repository
func NewPricingRepository(db *DB) *PricingRepository {
	return &PricingRepository{
		db:    db,
		cache: db.pricingCache,
	}
}

// List returns the models matching filter ordered by tool, engine and name
func (r *PricingRepository) List(ctx context.Context, filter ListFilter) ([]*models.PricingModel, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var whereClauses []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("tool", strings.ToLower(filter.Tool))
	add("LOWER(engine)", strings.ToLower(filter.Engine))
	add("model_key", filter.ModelKey)
	add("version", filter.Version)

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM pricing_models %s ORDER BY tool, engine, name, created_at`, pricingColumns, whereClause)

	list := []*models.PricingModel{}
	if err := r.db.conn.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pricing models: %w", err)
	}
	return list, nil
}

// Get retrieves a model by id (with caching)
func (r *PricingRepository) Get(ctx context.Context, id string) (*models.PricingModel, error) {
	if cached, found := r.cache.Get(id); found {
		return cached.Clone(), nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPricingModelNotFound
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m models.PricingModel
	query := fmt.Sprintf(`SELECT %s FROM pricing_models WHERE id = $1`, pricingColumns)
	if err := r.db.conn.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPricingModelNotFound
		}
		return nil, fmt.Errorf("failed to get pricing model: %w", err)
	}

	r.cache.Set(id, m.Clone())
	return &m, nil
}

// Create inserts a model, assigning its id and timestamps
func (r *PricingRepository) Create(ctx context.Context, m *models.PricingModel) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	prepare(m)
	m.ID = uuid.NewString()
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now

	query := `
		INSERT INTO pricing_models (
			id, tool, engine, model_key, version, name, description, status,
			pricing, modes, aspect_ratios,
			requires_image, supports_end_image, prompt_optional,
			created_at, updated_at
		) VALUES (
			:id, :tool, :engine, :model_key, :version, :name, :description, :status,
			:pricing, :modes, :aspect_ratios,
			:requires_image, :supports_end_image, :prompt_optional,
			:created_at, :updated_at
		)`

	if _, err := r.db.conn.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateModelKey
		}
		return fmt.Errorf("failed to create pricing model: %w", err)
	}
	return nil
}

// Update replaces every mutable field of a model
func (r *PricingRepository) Update(ctx context.Context, m *models.PricingModel) error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return ErrPricingModelNotFound
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	prepare(m)
	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE pricing_models SET
			tool = :tool, engine = :engine, model_key = :model_key, version = :version,
			name = :name, description = :description, status = :status,
			pricing = :pricing, modes = :modes, aspect_ratios = :aspect_ratios,
			requires_image = :requires_image, supports_end_image = :supports_end_image,
			prompt_optional = :prompt_optional, updated_at = :updated_at
		WHERE id = :id
		RETURNING created_at`

	rows, err := r.db.conn.NamedQueryContext(ctx, query, m)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateModelKey
		}
		return fmt.Errorf("failed to update pricing model: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to update pricing model: %w", err)
		}
		return ErrPricingModelNotFound
	}
	if err := rows.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("failed to read updated pricing model: %w", err)
	}

	r.cache.Delete(m.ID)
	return nil
}

// UpdateCell sets one cell inside a transaction so concurrent cell edits of
// the same model do not overwrite each other's matrix.
func (r *PricingRepository) UpdateCell(ctx context.Context, id, resolution, option string, credits float64) (*models.PricingModel, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPricingModelNotFound
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var m models.PricingModel
	query := fmt.Sprintf(`SELECT %s FROM pricing_models WHERE id = $1 FOR UPDATE`, pricingColumns)
	if err := tx.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPricingModelNotFound
		}
		return nil, fmt.Errorf("failed to lock pricing model: %w", err)
	}

	if m.Pricing == nil {
		m.Pricing = pricing.NewMatrix()
	}
	m.Pricing.Set(resolution, option, credits)
	m.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE pricing_models SET pricing = $1, updated_at = $2 WHERE id = $3`,
		m.Pricing, m.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update pricing cell: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pricing cell: %w", err)
	}

	r.cache.Delete(id)
	return &m, nil
}

// Delete deletes a model
func (r *PricingRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrPricingModelNotFound
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, "DELETE FROM pricing_models WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete pricing model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPricingModelNotFound
	}

	r.cache.Delete(id)
	return nil
}

// prepare fills the defaults the columns require.
func prepare(m *models.PricingModel) {
	if m.Pricing == nil {
		m.Pricing = pricing.NewMatrix()
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.Modes == nil {
		m.Modes = pq.StringArray{}
	}
	if m.AspectRatios == nil {
		m.AspectRatios = pq.StringArray{}
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
