package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/field-reservation/internal/model"
)

// FieldRepo provides read access to branches and fields.  Both are
// administered by an external back office, so this repository exposes no
// mutation methods.
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo returns a new FieldRepo bound to the given database.
func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

// DB exposes the underlying handle so callers can start transactions
// spanning multiple repositories.
func (r *FieldRepo) DB() *sql.DB { return r.db }

// GetByID loads a single field.  It returns ErrFieldNotFound when no
// field with the given ID exists.
func (r *FieldRepo) GetByID(ctx context.Context, id uint64) (*model.Field, error) {
	const q = `SELECT id, branch_id, name, sport, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE id = ?`
	var f model.Field
	var sport sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.BranchID, &f.Name, &sport, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFieldNotFound
	}
	if err != nil {
		return nil, err
	}
	if sport.Valid {
		s := sport.String
		f.Sport = &s
	}
	return &f, nil
}

// ListActive returns all active fields ordered by branch then name.  It
// is used by the all-fields availability overview.
func (r *FieldRepo) ListActive(ctx context.Context) ([]model.Field, error) {
	const q = `SELECT id, branch_id, name, sport, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE is_active = 1 ORDER BY branch_id, name`
	return r.scanFields(ctx, q)
}

// ListByBranch returns all active fields of a branch.  It returns
// ErrBranchNotFound when the branch does not exist.
func (r *FieldRepo) ListByBranch(ctx context.Context, branchID uint64) ([]model.Field, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM branches WHERE id = ?)`, branchID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBranchNotFound
	}
	const q = `SELECT id, branch_id, name, sport, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE branch_id = ? AND is_active = 1 ORDER BY name`
	return r.scanFields(ctx, q, branchID)
}

// GetBranch loads a single branch, returning ErrBranchNotFound when it
// does not exist.
func (r *FieldRepo) GetBranch(ctx context.Context, id uint64) (*model.Branch, error) {
	const q = `SELECT id, name, timezone, is_active, created_at, updated_at FROM branches WHERE id = ?`
	var b model.Branch
	err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Name, &b.Timezone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBranchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBranches returns all active branches ordered by name.
func (r *FieldRepo) ListBranches(ctx context.Context) ([]model.Branch, error) {
	const q = `SELECT id, name, timezone, is_active, created_at, updated_at
	           FROM branches WHERE is_active = 1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	branches := make([]model.Branch, 0)
	for rows.Next() {
		var b model.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Timezone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *FieldRepo) scanFields(ctx context.Context, q string, args ...interface{}) ([]model.Field, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fields := make([]model.Field, 0)
	for rows.Next() {
		var f model.Field
		var sport sql.NullString
		if err := rows.Scan(&f.ID, &f.BranchID, &f.Name, &sport, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if sport.Valid {
			s := sport.String
			f.Sport = &s
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}
