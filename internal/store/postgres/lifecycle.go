package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

// descriptor resolves kind, failing the way a missing deleted_at column does
// when soft delete is requested for a kind without one.
func descriptor(kind domain.Kind, needSoftDelete bool) (store.Descriptor, error) {
	desc, ok := store.Describe(kind)
	if !ok {
		return store.Descriptor{}, fmt.Errorf("%w: kind %q", store.ErrInvalidRecord, kind)
	}
	if needSoftDelete && !desc.SoftDelete {
		return store.Descriptor{}, fmt.Errorf("column %s.deleted_at does not exist: %w", desc.Table, store.ErrSoftDeleteUnsupported)
	}
	return desc, nil
}

func (s *Store) SoftDelete(ctx context.Context, kind domain.Kind, id string, at time.Time) error {
	desc, err := descriptor(kind, true)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+desc.Table+` SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at.UTC())
	if err != nil {
		return mapLifecycleErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// already trashed rows keep their original stamp
	return s.exists(ctx, desc.Table, id)
}

func (s *Store) SoftDeleteAll(ctx context.Context, kind domain.Kind, at time.Time) (int, error) {
	desc, err := descriptor(kind, true)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+desc.Table+` SET deleted_at = $1 WHERE deleted_at IS NULL`, at.UTC())
	if err != nil {
		return 0, mapLifecycleErr(err)
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) HardDelete(ctx context.Context, kind domain.Kind, id string) error {
	desc, err := descriptor(kind, false)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+desc.Table+` WHERE id = $1`, id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return expectAffected(res)
}

func (s *Store) ListDeleted(ctx context.Context, kind domain.Kind) ([]domain.TrashEntry, error) {
	desc, err := descriptor(kind, true)
	if err != nil {
		return nil, err
	}
	label := "''"
	if desc.LabelColumn != "" {
		label = "COALESCE(" + desc.LabelColumn + ", '')"
	}
	amount := "0"
	if desc.AmountColumn != "" {
		amount = "COALESCE(" + desc.AmountColumn + ", 0)"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, `+label+`, `+amount+`, deleted_at
		FROM `+desc.Table+`
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC, id
	`)
	if err != nil {
		return nil, mapLifecycleErr(err)
	}
	defer rows.Close()

	out := make([]domain.TrashEntry, 0, 16)
	for rows.Next() {
		entry := domain.TrashEntry{Kind: kind}
		if err := rows.Scan(&entry.ID, &entry.Label, &entry.Amount, &entry.DeletedAt); err != nil {
			return nil, err
		}
		if entry.Label == "" {
			entry.Label = entry.ID
		}
		entry.DeletedAt = entry.DeletedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) Restore(ctx context.Context, kind domain.Kind, id string) error {
	desc, err := descriptor(kind, true)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE `+desc.Table+` SET deleted_at = NULL WHERE id = $1`, id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return expectAffected(res)
}

// purgeKeep lists the RESTRICT references that keep an expired row in the trash.
var purgeKeep = map[domain.Kind]string{
	domain.KindProducts: ` AND NOT EXISTS (SELECT 1 FROM sale_items si WHERE si.product_id = products.id)` +
		` AND NOT EXISTS (SELECT 1 FROM purchase_items pi WHERE pi.product_id = products.id)`,
}

func (s *Store) PurgeDeletedBefore(ctx context.Context, kind domain.Kind, cutoff time.Time) (store.PurgeResult, error) {
	var out store.PurgeResult
	desc, err := descriptor(kind, true)
	if err != nil {
		return out, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer func() { _ = tx.Rollback() }()

	expired := `deleted_at IS NOT NULL AND deleted_at < $1`
	res, err := tx.ExecContext(ctx, `DELETE FROM `+desc.Table+` WHERE `+expired+purgeKeep[kind], cutoff.UTC())
	if err != nil {
		return out, mapLifecycleErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return out, err
	}
	out.Purged = int(affected)

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+desc.Table+` WHERE `+expired, cutoff.UTC()).Scan(&out.Kept); err != nil {
		return out, err
	}
	if err := tx.Commit(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) DeleteAll(ctx context.Context, table string) (int, error) {
	if !slices.Contains(store.ResetOrder, table) {
		return 0, fmt.Errorf("%w: table %q", store.ErrInvalidRecord, table)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table)
	if err != nil {
		return 0, mapLifecycleErr(err)
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (s *Store) exists(ctx context.Context, table string, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
