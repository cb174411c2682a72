package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viaacode/teamleader2db/internal/domain"
)

// resourceTables maps each resource type to its target table.
var resourceTables = map[domain.ResourceType]string{
	domain.ResourceCompanies:    "tl_companies",
	domain.ResourceContacts:     "tl_contacts",
	domain.ResourceDepartments:  "tl_departments",
	domain.ResourceEvents:       "tl_events",
	domain.ResourceInvoices:     "tl_invoices",
	domain.ResourceProjects:     "tl_projects",
	domain.ResourceUsers:        "tl_users",
	domain.ResourceCustomFields: "tl_custom_fields",
}

// ResourceRepository implements the resource table store for PostgreSQL.
// All eight resource tables share the same shape; the upsert keyed on
// external_id bumps updated_at, which is what the sync watermark reads.
type ResourceRepository struct {
	db *pgxpool.Pool
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(db *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// TableName returns the table backing the given resource type.
func (r *ResourceRepository) TableName(resource domain.ResourceType) string {
	return resourceTables[resource]
}

func (r *ResourceRepository) table(resource domain.ResourceType) (string, error) {
	table, ok := resourceTables[resource]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return table, nil
}

// UpsertBatch writes one page of detail documents in a single transaction.
// Re-syncing an external_id overwrites content and bumps updated_at; it
// never creates a duplicate row.
func (r *ResourceRepository) UpsertBatch(ctx context.Context, resource domain.ResourceType, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	table, err := r.table(resource)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (external_id, resource_type, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE
		SET content = EXCLUDED.content,
		    resource_type = EXCLUDED.resource_type,
		    updated_at = now()
	`, table)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(query, doc.ExternalID, string(resource), doc.Content)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert %s batch: %w", resource, err)
	}

	return tx.Commit(ctx)
}

// Truncate removes all rows of the resource table. Only a full sync does this.
func (r *ResourceRepository) Truncate(ctx context.Context, resource domain.ResourceType) error {
	table, err := r.table(resource)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, table)); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}
	return nil
}

// Count returns the number of synced rows for the resource.
func (r *ResourceRepository) Count(ctx context.Context, resource domain.ResourceType) (int64, error) {
	table, err := r.table(resource)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// MaxLastModified returns the watermark: the highest updated_at of the
// resource table, or nil when the table is empty.
func (r *ResourceRepository) MaxLastModified(ctx context.Context, resource domain.ResourceType) (*time.Time, error) {
	table, err := r.table(resource)
	if err != nil {
		return nil, err
	}
	var max *time.Time
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT max(updated_at) FROM %s`, table)).Scan(&max); err != nil {
		return nil, fmt.Errorf("failed to read watermark of %s: %w", table, err)
	}
	return max, nil
}

// SelectPage returns one page of stored documents ordered by insertion,
// used by the CSV export.
func (r *ResourceRepository) SelectPage(ctx context.Context, resource domain.ResourceType, limit, offset int) ([]domain.Document, error) {
	table, err := r.table(resource)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT external_id, content FROM %s ORDER BY id LIMIT $1 OFFSET $2`, table)
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select page of %s: %w", table, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ExternalID, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", table, err)
	}
	return docs, nil
}
