package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	SSLMode      string        `yaml:"ssl_mode"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// DefaultPostgresConfig returns sensible defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:         "localhost",
		Port:         5432,
		Database:     "llmgate",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		ConnLifetime: 5 * time.Minute,
	}
}

// PostgresStore implements Store using PostgreSQL. Structured task and user
// policy fields are stored as JSON columns on the tenant row.
type PostgresStore struct {
	db *sql.DB
}

const tenantPolicySchema = `
CREATE TABLE IF NOT EXISTS tenant_policies (
	tenant_id           TEXT PRIMARY KEY,
	default_provider    TEXT NOT NULL,
	default_model       TEXT NOT NULL,
	allow_remote_egress BOOLEAN NOT NULL DEFAULT FALSE,
	egress_mode         TEXT,
	allow_off_mode      BOOLEAN,
	tasks               JSONB,
	user_policies       JSONB,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// NewPostgresStore opens a connection pool and verifies connectivity.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate creates the tenant_policies table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, tenantPolicySchema); err != nil {
		return fmt.Errorf("create tenant_policies: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetPolicy retrieves a tenant policy, mapping the row back to the model.
// Returns nil, nil for an unknown tenant.
func (s *PostgresStore) GetPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error) {
	query := `
		SELECT tenant_id, default_provider, default_model, allow_remote_egress,
		       egress_mode, allow_off_mode, tasks, user_policies
		FROM tenant_policies
		WHERE tenant_id = $1`

	var p TenantPolicy
	var egressMode sql.NullString
	var allowOffMode sql.NullBool
	var tasksJSON, userPoliciesJSON sql.NullString

	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID, &p.DefaultProvider, &p.DefaultModel, &p.AllowRemoteEgress,
		&egressMode, &allowOffMode, &tasksJSON, &userPoliciesJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tenant policy: %w", err)
	}

	if egressMode.Valid {
		mode := Mode(egressMode.String)
		p.EgressMode = &mode
	}
	if allowOffMode.Valid {
		allow := allowOffMode.Bool
		p.AllowOffMode = &allow
	}
	if tasksJSON.Valid && tasksJSON.String != "" {
		if err := json.Unmarshal([]byte(tasksJSON.String), &p.Tasks); err != nil {
			return nil, fmt.Errorf("parse tasks: %w", err)
		}
	}
	if userPoliciesJSON.Valid && userPoliciesJSON.String != "" {
		if err := json.Unmarshal([]byte(userPoliciesJSON.String), &p.UserPolicies); err != nil {
			return nil, fmt.Errorf("parse user_policies: %w", err)
		}
	}

	return &p, nil
}

// SetPolicy upserts the tenant policy row.
func (s *PostgresStore) SetPolicy(ctx context.Context, policy *TenantPolicy) error {
	tasksJSON, err := json.Marshal(policy.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	userPoliciesJSON, err := json.Marshal(policy.UserPolicies)
	if err != nil {
		return fmt.Errorf("marshal user_policies: %w", err)
	}

	var egressMode sql.NullString
	if policy.EgressMode != nil {
		egressMode = sql.NullString{String: string(*policy.EgressMode), Valid: true}
	}
	var allowOffMode sql.NullBool
	if policy.AllowOffMode != nil {
		allowOffMode = sql.NullBool{Bool: *policy.AllowOffMode, Valid: true}
	}

	query := `
		INSERT INTO tenant_policies
			(tenant_id, default_provider, default_model, allow_remote_egress,
			 egress_mode, allow_off_mode, tasks, user_policies, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			default_provider    = EXCLUDED.default_provider,
			default_model       = EXCLUDED.default_model,
			allow_remote_egress = EXCLUDED.allow_remote_egress,
			egress_mode         = EXCLUDED.egress_mode,
			allow_off_mode      = EXCLUDED.allow_off_mode,
			tasks               = EXCLUDED.tasks,
			user_policies       = EXCLUDED.user_policies,
			updated_at          = NOW()`

	_, err = s.db.ExecContext(ctx, query,
		policy.TenantID, policy.DefaultProvider, policy.DefaultModel,
		policy.AllowRemoteEgress, egressMode, allowOffMode,
		string(tasksJSON), string(userPoliciesJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert tenant policy: %w", err)
	}
	return nil
}

// DeletePolicy removes the tenant's policy row.
func (s *PostgresStore) DeletePolicy(ctx context.Context, tenantID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM tenant_policies WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("delete tenant policy: %w", err)
	}
	return nil
}
