package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
)

// EntryEvent is an input to the entry lifecycle.
type EntryEvent string

const (
	EventSave            EntryEvent = "SAVE"
	EventRequestApproval EntryEvent = "REQUEST_APPROVAL"
	EventPost            EntryEvent = "POST"
	EventApprove         EntryEvent = "APPROVE"
	EventReject          EntryEvent = "REJECT"
	EventReverse         EntryEvent = "REVERSE"
)

// Effect is a side effect the caller must perform after a transition.
type Effect string

const (
	EffectFreezeLines             Effect = "FREEZE_LINES"
	EffectOpenApprovalRound       Effect = "OPEN_APPROVAL_ROUND"
	EffectCancelPendingApprovals  Effect = "CANCEL_PENDING_APPROVALS"
	EffectRecordRejection         Effect = "RECORD_REJECTION"
	EffectCreateReversal          Effect = "CREATE_REVERSAL"
	EffectLinkReversal            Effect = "LINK_REVERSAL"
	EffectNotifyApprovalRequested Effect = "NOTIFY_APPROVAL_REQUESTED"
	EffectNotifyApprovalResolved  Effect = "NOTIFY_APPROVAL_RESOLVED"
	EffectNotifyEntryPosted       Effect = "NOTIFY_ENTRY_POSTED"
	EffectNotifyEntryReversed     Effect = "NOTIFY_ENTRY_REVERSED"
)

// TransitionGuards are the facts the caller gathered before asking for a transition.
// Only the fields relevant to the event are consulted.
type TransitionGuards struct {
	// Authorized is the Permission Gate verdict for the action behind the event.
	Authorized bool
	LineCount  int
	// Validation is the Balance Validator result; nil means it was not run.
	Validation *ValidationResult
	// ResolverIsRequester is set when the approving user also requested the approval.
	ResolverIsRequester bool
	// RoundComplete reports whether the approval policy is satisfied by this decision.
	RoundComplete   bool
	Reason          string
	AlreadyReversed bool
}

// TransitionOutcome is the target state plus the effects to apply.
type TransitionOutcome struct {
	To      EntryStatus
	Effects []Effect
}

// Has reports whether the outcome requires the given effect.
func (o TransitionOutcome) Has(effect Effect) bool {
	for _, e := range o.Effects {
		if e == effect {
			return true
		}
	}
	return false
}

type transitionKey struct {
	from  EntryStatus
	event EntryEvent
}

var transitionTable = map[transitionKey]TransitionOutcome{
	{Draft, EventSave}: {To: Draft},
	{Draft, EventRequestApproval}: {
		To:      PendingApproval,
		Effects: []Effect{EffectOpenApprovalRound, EffectNotifyApprovalRequested},
	},
	{Draft, EventPost}: {
		To:      Posted,
		Effects: []Effect{EffectFreezeLines, EffectNotifyEntryPosted},
	},
	{PendingApproval, EventApprove}: {
		To:      Posted,
		Effects: []Effect{EffectFreezeLines, EffectCancelPendingApprovals, EffectNotifyApprovalResolved, EffectNotifyEntryPosted},
	},
	{PendingApproval, EventReject}: {
		To:      Draft,
		Effects: []Effect{EffectRecordRejection, EffectCancelPendingApprovals, EffectNotifyApprovalResolved},
	},
	{Posted, EventReverse}: {
		To:      Reversed,
		Effects: []Effect{EffectCreateReversal, EffectLinkReversal, EffectNotifyEntryReversed},
	},
}

// IsAllowed reports whether event is defined for state from, ignoring guards.
func IsAllowed(from EntryStatus, event EntryEvent) bool {
	_, ok := transitionTable[transitionKey{from, event}]
	return ok
}

// AllowedEvents lists the events defined for state from.
func AllowedEvents(from EntryStatus) []EntryEvent {
	var events []EntryEvent
	for _, ev := range []EntryEvent{EventSave, EventRequestApproval, EventPost, EventApprove, EventReject, EventReverse} {
		if IsAllowed(from, ev) {
			events = append(events, ev)
		}
	}
	return events
}

// Transition computes the next state and required effects. It never mutates anything;
// on error the caller must leave the entry untouched.
func Transition(from EntryStatus, event EntryEvent, g TransitionGuards) (TransitionOutcome, error) {
	outcome, ok := transitionTable[transitionKey{from, event}]
	if !ok {
		return TransitionOutcome{}, &apperrors.TransitionError{From: string(from), Event: string(event)}
	}
	if !g.Authorized {
		return TransitionOutcome{}, fmt.Errorf("%w: not allowed to %s entry in state %s", apperrors.ErrPermissionDenied, strings.ToLower(string(event)), from)
	}

	switch event {
	case EventRequestApproval:
		if g.LineCount < 1 {
			return TransitionOutcome{}, NewValidationError(ValidationResult{
				Errors: []ValidationIssue{{Code: CodeNoLines, Message: "entry must have at least one line"}},
			})
		}
		// PendingApproval entries must balance like posted ones.
		if err := requireBalanced(g.Validation); err != nil {
			return TransitionOutcome{}, err
		}
	case EventPost:
		if err := requireBalanced(g.Validation); err != nil {
			return TransitionOutcome{}, err
		}
	case EventApprove:
		if g.ResolverIsRequester {
			return TransitionOutcome{}, fmt.Errorf("%w: approver cannot approve their own request", apperrors.ErrPermissionDenied)
		}
		if !g.RoundComplete {
			return TransitionOutcome{}, fmt.Errorf("%w: approval round is not complete", apperrors.ErrInvalidTransition)
		}
		if err := requireBalanced(g.Validation); err != nil {
			return TransitionOutcome{}, err
		}
	case EventReverse:
		if g.AlreadyReversed {
			return TransitionOutcome{}, apperrors.ErrAlreadyReversed
		}
		if strings.TrimSpace(g.Reason) == "" {
			return TransitionOutcome{}, apperrors.ErrReasonRequired
		}
	}

	return TransitionOutcome{To: outcome.To, Effects: append([]Effect(nil), outcome.Effects...)}, nil
}

func requireBalanced(v *ValidationResult) error {
	if v == nil {
		return fmt.Errorf("%w: lines were not validated", apperrors.ErrValidationFailed)
	}
	if !v.IsBalanced {
		return NewValidationError(*v)
	}
	return nil
}
