package db

import (
	"context"
	"fmt"

	"github.com/controla/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

const instanceColumns = `
	id, external_id, tenant_id, name, base_url, api_key, status, version,
	last_seen_at, last_error_check, created_at, updated_at
`

func (db *Postgres) EnsureInstanceSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS instances (
			id               BIGSERIAL    PRIMARY KEY,
			external_id      TEXT         NOT NULL UNIQUE,
			tenant_id        TEXT         NOT NULL,
			name             TEXT         NOT NULL,
			base_url         TEXT         NOT NULL,
			api_key          TEXT         NOT NULL DEFAULT '',
			status           TEXT         NOT NULL DEFAULT 'unknown',
			version          TEXT         NOT NULL DEFAULT 'unknown',
			last_seen_at     TIMESTAMPTZ,
			last_error_check TIMESTAMPTZ,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS instances_tenant_id_idx ON instances(tenant_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// FindAllInstances loads every instance across tenants, for the fleet sweep.
func (db *Postgres) FindAllInstances(ctx context.Context) ([]model.Instance, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+instanceColumns+` FROM instances ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	return collectInstances(rows)
}

func (db *Postgres) FindInstancesByTenant(ctx context.Context, tenantID string) ([]model.Instance, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE tenant_id = $1
		ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	return collectInstances(rows)
}

// FindInstanceByExternalID returns pgx.ErrNoRows when the instance does not
// exist or belongs to another tenant.
func (db *Postgres) FindInstanceByExternalID(ctx context.Context, tenantID, externalID string) (*model.Instance, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE tenant_id = $1 AND external_id = $2
	`, tenantID, externalID)

	inst, err := scanInstance(row)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// InsertInstance registers a new instance. An external id that already
// exists fails with a unique violation instead of touching the existing row.
func (db *Postgres) InsertInstance(ctx context.Context, inst *model.Instance) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO instances (
			external_id, tenant_id, name, base_url, api_key, status, version,
			last_seen_at, last_error_check, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`,
		inst.ExternalID,
		inst.TenantID,
		inst.Name,
		inst.BaseURL,
		inst.APIKey,
		string(inst.Status),
		inst.Version,
		inst.LastSeenAt,
		inst.LastErrorCheck,
	).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert instance %s: %w", inst.ExternalID, err)
	}
	return nil
}

// SaveInstance writes back an existing instance of its tenant. A row that
// was deleted in the meantime is not recreated: the error wraps
// pgx.ErrNoRows.
func (db *Postgres) SaveInstance(ctx context.Context, inst *model.Instance) error {
	err := db.Pool.QueryRow(ctx, `
		UPDATE instances SET
			name             = $3,
			base_url         = $4,
			api_key          = $5,
			status           = $6,
			version          = $7,
			last_seen_at     = $8,
			last_error_check = GREATEST(last_error_check, $9::timestamptz),
			updated_at       = NOW()
		WHERE tenant_id = $1 AND external_id = $2
		RETURNING id, created_at, updated_at
	`,
		inst.TenantID,
		inst.ExternalID,
		inst.Name,
		inst.BaseURL,
		inst.APIKey,
		string(inst.Status),
		inst.Version,
		inst.LastSeenAt,
		inst.LastErrorCheck,
	).Scan(&inst.ID, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", inst.ExternalID, err)
	}
	return nil
}

func (db *Postgres) DeleteInstance(ctx context.Context, tenantID, externalID string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM instances WHERE tenant_id = $1 AND external_id = $2`, tenantID, externalID)
	if err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) CountInstancesByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM instances WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}
	return count, nil
}

func scanInstance(row pgx.Row) (*model.Instance, error) {
	var inst model.Instance
	var status string
	err := row.Scan(
		&inst.ID,
		&inst.ExternalID,
		&inst.TenantID,
		&inst.Name,
		&inst.BaseURL,
		&inst.APIKey,
		&status,
		&inst.Version,
		&inst.LastSeenAt,
		&inst.LastErrorCheck,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.Status = model.InstanceStatus(status)
	return &inst, nil
}

func collectInstances(rows pgx.Rows) ([]model.Instance, error) {
	defer rows.Close()

	instances := []model.Instance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instances: %w", err)
	}
	return instances, nil
}
