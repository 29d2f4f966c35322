// Package postgres persists job records in Postgres through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schemaSQL string

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// JobStore writes jobs and benefits into Postgres.
type JobStore struct {
	pool pool
}

// NewJobStore connects a pool using cfg.
func NewJobStore(ctx context.Context, cfg Config) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: p}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(p pool) (*JobStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *JobStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the jobs and job_benefits tables when missing.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InsertJob inserts rec and returns the generated ID. A unique violation on
// source_url is reported as crawler.ErrDuplicateJob.
func (s *JobStore) InsertJob(ctx context.Context, rec crawler.Record) (string, error) {
	const query = `
INSERT INTO jobs (
	title,
	company,
	description,
	location,
	work_mode,
	seniority,
	contract_type,
	salary_text,
	company_logo_url,
	source_platform,
	source_url,
	application_method,
	application_url
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) RETURNING id::text`

	var id string
	err := s.pool.QueryRow(ctx, query,
		rec.Title,
		rec.Company,
		rec.Description,
		rec.Location,
		string(rec.WorkMode),
		string(rec.Seniority),
		string(rec.ContractType),
		rec.SalaryText,
		rec.CompanyLogoURL,
		rec.SourcePlatform,
		rec.SourceURL,
		rec.ApplicationMethod,
		rec.ApplicationURL(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("insert job %s: %w", rec.SourceURL, crawler.ErrDuplicateJob)
		}
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// InsertBenefits attaches benefit names to jobID, ignoring repeats.
func (s *JobStore) InsertBenefits(ctx context.Context, jobID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	const query = `
INSERT INTO job_benefits (job_id, name)
SELECT $1::uuid, unnest($2::text[])
ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, jobID, names); err != nil {
		return fmt.Errorf("insert benefits: %w", err)
	}
	return nil
}

// ExistsBySourceURL reports whether a job with sourceURL is stored.
func (s *JobStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE source_url = $1)`, sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check job exists: %w", err)
	}
	return exists, nil
}
