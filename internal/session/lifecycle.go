package session

import (
	"context"
	"fmt"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/recovery"
)

// Delete moves a record to the trash, or removes it outright for kinds
// without a trash.
func (s *Session) Delete(ctx context.Context, kind domain.Kind, id string) (recovery.Outcome, error) {
	var out recovery.Outcome
	err := s.apply(ctx, "delete "+string(kind), func(ctx context.Context) (err error) {
		out, err = s.recovery.SoftDelete(ctx, kind, id)
		return err
	}, kind)
	return out, err
}

// ClearKind trashes every active record of kind.
func (s *Session) ClearKind(ctx context.Context, kind domain.Kind) (recovery.Outcome, error) {
	var out recovery.Outcome
	err := s.apply(ctx, "clear "+string(kind), func(ctx context.Context) (err error) {
		out, err = s.recovery.BulkSoftDelete(ctx, kind)
		return err
	}, kind)
	if err != nil {
		return out, err
	}
	s.logActivity(domain.ActivityOther, fmt.Sprintf("Cleared %d %s, recovery available for 30 days", out.Affected, kind))
	return out, nil
}

func (s *Session) Restore(ctx context.Context, kind domain.Kind, id string) (recovery.Outcome, error) {
	var out recovery.Outcome
	err := s.apply(ctx, "restore "+string(kind), func(ctx context.Context) (err error) {
		out, err = s.recovery.Restore(ctx, kind, id)
		return err
	}, kind)
	return out, err
}

// Trash lists trashed records of kind without touching session state.
func (s *Session) Trash(ctx context.Context, kind domain.Kind) ([]domain.TrashEntry, error) {
	entries, err := s.recovery.ListTrash(ctx, kind)
	if err != nil {
		return nil, &OpError{Op: "list trash", Err: err}
	}
	return entries, nil
}

// ResetSystem wipes every table and reloads the now empty view.
func (s *Session) ResetSystem(ctx context.Context) (recovery.ResetReport, error) {
	var report recovery.ResetReport
	err := s.apply(ctx, "reset system", func(ctx context.Context) (err error) {
		report, err = s.recovery.ResetSystem(ctx)
		return err
	}, allKinds...)
	if err != nil {
		return report, err
	}
	s.logActivity(domain.ActivityOther, "System reset: all records deleted")
	return report, nil
}

// UpdateSettings saves the merged settings; the view changes only once the
// store accepts them.
func (s *Session) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.StoreSettings, error) {
	if err := domain.Validate(req); err != nil {
		return domain.StoreSettings{}, &OpError{Op: "update settings", Err: invalid(err)}
	}

	next := req.Apply(s.Settings())
	next.UserID = s.userID
	err := s.apply(ctx, "update settings", func(ctx context.Context) error {
		return s.repo.UpsertSettings(ctx, next)
	})
	if err != nil {
		return s.Settings(), err
	}

	s.mu.Lock()
	s.state.Settings = next
	s.mu.Unlock()
	return next, nil
}
