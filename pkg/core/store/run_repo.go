package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"financial_model/pkg/logging"
	"financial_model/pkg/models"
)

// ErrNotFound is returned by Load when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// DefaultRunDir is the file fallback used when no directory is configured.
var DefaultRunDir = filepath.Join(".cache", "valuation_runs")

// RunRepository is what the orchestrator and the API need from storage.
type RunRepository interface {
	Save(ctx context.Context, rec *models.RunRecord) error
	Load(ctx context.Context, id string) (*models.RunRecord, error)
	List(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// RunRepo stores run records.
// Hybrid Vault: Postgres JSONB (primary) + one JSON file per run (fallback/local).
// With a pool, reads go to the database only; files are written as a local copy.
type RunRepo struct {
	pool    *pgxpool.Pool
	fileDir string
	logger  logging.Logger
}

// NewRunRepo creates a repository. If pool is nil and dir is empty the
// repository writes to DefaultRunDir.
func NewRunRepo(pool *pgxpool.Pool, dir string, logger logging.Logger) *RunRepo {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pool == nil && dir == "" {
		dir = DefaultRunDir
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warn("cannot create run directory", logging.String("dir", dir), logging.Err(err))
		}
	}
	return &RunRepo{pool: pool, fileDir: dir, logger: logger.Named("store")}
}

// Save assigns an ID and timestamp when missing and persists rec.
// It upserts on ID.
func (r *RunRepo) Save(ctx context.Context, rec *models.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("nil run record")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", rec.ID, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// 1. Save to DB
	if r.pool != nil {
		query := `
			INSERT INTO valuation_runs (id, source, years, enterprise_value, record, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id)
			DO UPDATE SET
				source = EXCLUDED.source,
				years = EXCLUDED.years,
				enterprise_value = EXCLUDED.enterprise_value,
				record = EXCLUDED.record
		`
		_, err = r.pool.Exec(ctx, query, rec.ID, rec.Source, rec.Years, rec.EnterpriseValue(), data, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	// 2. Save to File
	if r.fileDir != "" {
		if err := r.writeFile(rec); err != nil {
			if r.pool == nil {
				return err
			}
			r.logger.Warn("local copy not written", logging.String("id", rec.ID), logging.Err(err))
		}
	}

	r.logger.Info("run saved",
		logging.String("id", rec.ID),
		logging.Float64("enterprise_value", rec.EnterpriseValue()),
		logging.Bool("db", r.pool != nil))
	return nil
}

// Load retrieves a run by ID.
func (r *RunRepo) Load(ctx context.Context, id string) (*models.RunRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if r.pool != nil {
		var data []byte
		err := r.pool.QueryRow(ctx, `SELECT record FROM valuation_runs WHERE id = $1`, id).Scan(&data)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return nil, fmt.Errorf("failed to load run: %w", err)
		}
		var rec models.RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		return &rec, nil
	}

	if r.fileDir == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.readFile(r.path(id))
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (r *RunRepo) List(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if r.pool != nil {
		query := `
			SELECT id::text, COALESCE(source, ''), years, enterprise_value, created_at
			FROM valuation_runs
			ORDER BY created_at DESC
		`
		args := []interface{}{}
		if limit > 0 {
			query += " LIMIT $1"
			args = append(args, limit)
		}
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		defer rows.Close()

		var out []models.RunSummary
		for rows.Next() {
			var s models.RunSummary
			if err := rows.Scan(&s.ID, &s.Source, &s.Years, &s.EnterpriseValue, &s.CreatedAt); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			out = append(out, s)
		}
		return out, rows.Err()
	}

	if r.fileDir == "" {
		return nil, nil
	}
	return r.scanFiles(limit)
}

func (r *RunRepo) path(id string) string {
	return filepath.Join(r.fileDir, id+".json")
}

func (r *RunRepo) writeFile(rec *models.RunRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	tmp := r.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmp, r.path(rec.ID)); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	return nil
}

func (r *RunRepo) readFile(path string) (*models.RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	var rec models.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run file %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

func (r *RunRepo) scanFiles(limit int) ([]models.RunSummary, error) {
	files, err := filepath.Glob(filepath.Join(r.fileDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan run files: %w", err)
	}
	out := make([]models.RunSummary, 0, len(files))
	for _, f := range files {
		rec, err := r.readFile(f)
		if err != nil {
			r.logger.Warn("skipping unreadable run file", logging.String("file", f), logging.Err(err))
			continue
		}
		out = append(out, rec.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
