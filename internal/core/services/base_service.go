package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
	"github.com/SscSPs/journal_ledger/internal/utils/accounting"
	"github.com/google/uuid"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Permissions portsrepo.PermissionRepository
	Notifier    portssvc.Notifier
	Locker      portssvc.EntryLocker
	Clock       func() time.Time
}

// BaseOption configures the shared collaborators of a service.
type BaseOption func(*BaseService)

// WithNotifier sets the event sink. Without one events are only logged at debug level.
func WithNotifier(n portssvc.Notifier) BaseOption {
	return func(b *BaseService) {
		b.Notifier = n
	}
}

// WithLocker sets the per-entry lock.
func WithLocker(l portssvc.EntryLocker) BaseOption {
	return func(b *BaseService) {
		b.Locker = l
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(clock func() time.Time) BaseOption {
	return func(b *BaseService) {
		b.Clock = clock
	}
}

func newBaseService(permissions portsrepo.PermissionRepository, opts ...BaseOption) BaseService {
	base := BaseService{Permissions: permissions}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

func (s *BaseService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// principal loads the caller's grant. A user without one is denied rather than not found.
func (s *BaseService) principal(ctx context.Context, workplaceID, userID string) (domain.Principal, error) {
	if s.Permissions == nil {
		return domain.Principal{}, fmt.Errorf("%w: no permission repository configured", apperrors.ErrInternal)
	}
	p, err := s.Permissions.FindPrincipal(ctx, workplaceID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Principal{}, fmt.Errorf("%w: user %s has no access to workplace %s", apperrors.ErrPermissionDenied, userID, workplaceID)
		}
		s.LogError(ctx, err, "Failed to load principal",
			slog.String("user_id", userID),
			slog.String("workplace_id", workplaceID))
		return domain.Principal{}, err
	}
	return *p, nil
}

// lockEntry holds the entry lock until the returned func is called.
func (s *BaseService) lockEntry(ctx context.Context, entryID string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.Locker.Lock(ctx, "journal_entry:"+entryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to acquire entry lock", slog.String("entry_id", entryID))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: entry %s is locked by another operation", apperrors.ErrConcurrentModification, entryID)
	}
	return unlock, nil
}

// notify emits events after a transition has committed. Failures never reach the caller.
func (s *BaseService) notify(ctx context.Context, events ...domain.LedgerEvent) {
	for _, ev := range events {
		if s.Notifier == nil {
			s.LogDebug(ctx, "No notifier configured, dropping event",
				slog.String("event_type", string(ev.Type)),
				slog.String("entry_id", ev.EntryID))
			continue
		}
		s.Notifier.Notify(context.WithoutCancel(ctx), ev)
	}
}

func (s *BaseService) event(eventType domain.LedgerEventType, entry *domain.JournalEntry, actorID string) domain.LedgerEvent {
	return domain.NewLedgerEvent(uuid.NewString(), eventType, entry, actorID, s.now())
}

// findEntry loads an entry of the workplace. Entries of other workplaces are reported as not found.
func findEntry(ctx context.Context, repo portsrepo.JournalEntryReader, workplaceID, entryID string) (*domain.JournalEntry, error) {
	entry, err := repo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.WorkplaceID != workplaceID {
		return nil, apperrors.NewNotFoundError("journal entry " + entryID)
	}
	return entry, nil
}

// validateEntryLines runs the Balance Validator and additionally checks that every
// referenced account exists in the workplace's directory.
func validateEntryLines(ctx context.Context, accounts portsrepo.AccountDirectory, workplaceID string, lines []domain.JournalLine) (domain.ValidationResult, error) {
	result := accounting.ValidateLines(lines)
	if accounts == nil || len(lines) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.AccountID == "" {
			continue
		}
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	if len(ids) == 0 {
		return result, nil
	}

	known, err := accounts.LookupAccounts(ctx, workplaceID, ids)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("failed to look up accounts: %w", err)
	}
	for i, l := range lines {
		if l.AccountID == "" {
			continue
		}
		if _, ok := known[l.AccountID]; !ok {
			idx := i
			result.Errors = append(result.Errors, domain.ValidationIssue{
				Code:      domain.CodeMissingAccount,
				LineIndex: &idx,
				Message:   fmt.Sprintf("line %d: account %s does not exist", i+1, l.AccountID),
			})
			result.IsBalanced = false
		}
	}
	return result, nil
}
