// Package recovery implements delete-with-undo across the soft-deletable kinds:
// soft delete with hard-delete fallback, trash listing, restore, the 30 day
// retention sweep and the full system reset.
//
// Manager methods are commands only. Callers that hold an in-memory view
// resync it themselves once a command returns.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"retailhub/backend/internal/cache"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/store"
)

// Retention is how long a trashed record stays restorable.
const Retention = 30 * 24 * time.Hour

const (
	purgeGuardKey = "purge-expired"
	purgeGuardTTL = 10 * time.Minute
)

// ErrSoftDeleteRequired is returned when a record could only be hard deleted
// and other rows still reference it.
var ErrSoftDeleteRequired = errors.New("record is still referenced by other data; enable soft delete (deleted_at column) for this table to remove it")

// Mode says whether a delete left the record restorable.
type Mode string

const (
	ModeSoft Mode = "soft"
	ModeHard Mode = "hard"
)

// Outcome describes what a lifecycle command actually did.
type Outcome struct {
	Kind     domain.Kind `json:"kind"`
	ID       string      `json:"id,omitempty"`
	Mode     Mode        `json:"mode,omitempty"`
	Affected int         `json:"affected"`
	Warning  string      `json:"warning,omitempty"`
}

// PurgeReport is the result of one retention sweep. Kept counts expired rows
// left in the trash because other records still reference them.
type PurgeReport struct {
	Cutoff  time.Time           `json:"cutoff"`
	Skipped bool                `json:"skipped"`
	Purged  map[domain.Kind]int `json:"purged"`
	Kept    map[domain.Kind]int `json:"kept,omitempty"`
}

// ResetReport counts the rows removed per table by a system reset.
type ResetReport struct {
	Deleted map[string]int `json:"deleted"`
}

// Manager runs the lifecycle commands against a store.
type Manager struct {
	store   store.Lifecycle
	metrics *metrics.Recorder
	guard   cache.SweepGuard
	now     func() time.Time
}

// New returns a Manager. A nil guard lets every purge run.
func New(lifecycle store.Lifecycle, recorder *metrics.Recorder, guard cache.SweepGuard) *Manager {
	if guard == nil {
		guard = cache.NoopSweepGuard{}
	}
	return &Manager{
		store:   lifecycle,
		metrics: recorder,
		guard:   guard,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SoftDelete stamps the record as deleted. Kinds without a deleted_at column
// are hard deleted instead and the Outcome carries a warning.
func (m *Manager) SoftDelete(ctx context.Context, kind domain.Kind, id string) (Outcome, error) {
	desc, ok := store.Describe(kind)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown kind %q", store.ErrInvalidRecord, kind)
	}
	out := Outcome{Kind: kind, ID: id}

	if !desc.SoftDelete {
		if err := m.store.HardDelete(ctx, kind, id); err != nil {
			m.metrics.Operation("delete", string(kind), "error")
			return out, err
		}
		out.Mode, out.Affected = ModeHard, 1
		m.metrics.Operation("delete", string(kind), string(ModeHard))
		log.Info().Str("kind", string(kind)).Str("id", id).Msg("record deleted")
		return out, nil
	}

	err := m.store.SoftDelete(ctx, kind, id, m.now())
	switch {
	case err == nil:
		out.Mode, out.Affected = ModeSoft, 1
		m.metrics.Operation("delete", string(kind), string(ModeSoft))
		log.Info().Str("kind", string(kind)).Str("id", id).Msg("record moved to trash")
		return out, nil
	case !store.IsMissingDeletedAt(err):
		m.metrics.Operation("delete", string(kind), "error")
		return out, err
	}

	log.Warn().Str("kind", string(kind)).Str("id", id).Err(err).Msg("soft delete unsupported, falling back to hard delete")
	if err := m.store.HardDelete(ctx, kind, id); err != nil {
		m.metrics.Operation("delete", string(kind), "error")
		if errors.Is(err, store.ErrReferenced) {
			return out, fmt.Errorf("%w (%w)", ErrSoftDeleteRequired, err)
		}
		return out, err
	}
	out.Mode, out.Affected = ModeHard, 1
	out.Warning = "soft delete is not supported for " + string(kind) + "; the record was permanently deleted instead"
	m.metrics.Operation("delete", string(kind), string(ModeHard))
	return out, nil
}

// BulkSoftDelete trashes every active record of kind. Records already in the
// trash keep their original timestamp.
func (m *Manager) BulkSoftDelete(ctx context.Context, kind domain.Kind) (Outcome, error) {
	n, err := m.store.SoftDeleteAll(ctx, kind, m.now())
	if err != nil {
		m.metrics.Operation("clear", string(kind), "error")
		return Outcome{Kind: kind}, err
	}
	m.metrics.Operation("clear", string(kind), "ok")
	log.Info().Str("kind", string(kind)).Int("count", n).Msg("kind cleared to trash")
	return Outcome{Kind: kind, Mode: ModeSoft, Affected: n}, nil
}

// ListTrash returns the trashed records of kind, most recently deleted first.
func (m *Manager) ListTrash(ctx context.Context, kind domain.Kind) ([]domain.TrashEntry, error) {
	return m.store.ListDeleted(ctx, kind)
}

func (m *Manager) Restore(ctx context.Context, kind domain.Kind, id string) (Outcome, error) {
	if err := m.store.Restore(ctx, kind, id); err != nil {
		m.metrics.Operation("restore", string(kind), "error")
		return Outcome{Kind: kind, ID: id}, err
	}
	m.metrics.Operation("restore", string(kind), "ok")
	log.Info().Str("kind", string(kind)).Str("id", id).Msg("record restored")
	return Outcome{Kind: kind, ID: id, Affected: 1}, nil
}

// PurgeExpired permanently removes trash entries deleted strictly more than
// Retention ago. Kinds whose table has no deleted_at column are skipped. A
// failure on one kind does not stop the others; all failures are joined.
func (m *Manager) PurgeExpired(ctx context.Context) (PurgeReport, error) {
	now := m.now()
	report := PurgeReport{Cutoff: now.Add(-Retention), Purged: make(map[domain.Kind]int), Kept: make(map[domain.Kind]int)}

	acquired, err := m.guard.Acquire(ctx, purgeGuardKey, purgeGuardTTL)
	if err != nil {
		log.Warn().Err(err).Msg("purge guard unavailable, sweeping anyway")
	} else if !acquired {
		report.Skipped = true
		m.metrics.Operation("purge", "all", "skipped")
		log.Debug().Msg("purge already ran in this window")
		return report, nil
	}

	var errs []error
	for _, kind := range domain.RecoverableKinds {
		res, err := m.store.PurgeDeletedBefore(ctx, kind, report.Cutoff)
		if err != nil {
			if store.IsMissingDeletedAt(err) {
				continue
			}
			m.metrics.Operation("purge", string(kind), "error")
			errs = append(errs, fmt.Errorf("purge %s: %w", kind, err))
			continue
		}
		report.Purged[kind] = res.Purged
		m.metrics.Operation("purge", string(kind), "ok")
		m.metrics.Purged(string(kind), res.Purged)
		if res.Purged > 0 {
			log.Info().Str("kind", string(kind)).Int("count", res.Purged).Time("cutoff", report.Cutoff).Msg("expired trash purged")
		}
		if res.Kept > 0 {
			report.Kept[kind] = res.Kept
			log.Warn().Str("kind", string(kind)).Int("count", res.Kept).Msg("expired trash kept, still referenced")
		}
	}
	return report, errors.Join(errs...)
}

// ResetSystem hard deletes every row of every table, children before parents.
func (m *Manager) ResetSystem(ctx context.Context) (ResetReport, error) {
	report := ResetReport{Deleted: make(map[string]int, len(store.ResetOrder))}
	for _, table := range store.ResetOrder {
		n, err := m.store.DeleteAll(ctx, table)
		if err != nil {
			m.metrics.Operation("reset", table, "error")
			return report, fmt.Errorf("reset %s: %w", table, err)
		}
		report.Deleted[table] = n
	}
	m.metrics.Operation("reset", "all", "ok")
	log.Warn().Interface("deleted", report.Deleted).Msg("system reset completed")
	return report, nil
}
