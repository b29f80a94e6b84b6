package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Action is something a user may be allowed to do to an entry.
type Action string

const (
	ActionCreate          Action = "create"
	ActionEdit            Action = "edit"
	ActionDelete          Action = "delete"
	ActionPost            Action = "post"
	ActionReverse         Action = "reverse"
	ActionApprove         Action = "approve"
	ActionViewAll         Action = "viewAll"
	ActionRequestApproval Action = "requestApproval"
)

var knownActions = map[Action]struct{}{
	ActionCreate: {}, ActionEdit: {}, ActionDelete: {}, ActionPost: {},
	ActionReverse: {}, ActionApprove: {}, ActionViewAll: {}, ActionRequestApproval: {},
}

// ParseAction validates a stored capability name.
func ParseAction(v string) (Action, error) {
	a := Action(v)
	if _, ok := knownActions[a]; !ok {
		return "", fmt.Errorf("unknown action %q", v)
	}
	return a, nil
}

// CapabilitySet is the set of actions a principal holds.
type CapabilitySet map[Action]struct{}

// NewCapabilitySet builds a set from the given actions.
func NewCapabilitySet(actions ...Action) CapabilitySet {
	set := make(CapabilitySet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Has reports whether the set contains a.
func (c CapabilitySet) Has(a Action) bool {
	_, ok := c[a]
	return ok
}

// List returns the actions sorted by name.
func (c CapabilitySet) List() []Action {
	list := make([]Action, 0, len(c))
	for a := range c {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Principal is a user acting within one workplace.
type Principal struct {
	UserID       string        `json:"userID"`
	WorkplaceID  string        `json:"workplaceID"`
	Capabilities CapabilitySet `json:"capabilities"`
	// MaxApprovalAmount is nil when the user may approve any amount.
	MaxApprovalAmount *decimal.Decimal `json:"maxApprovalAmount,omitempty"`
}

// Can is shorthand for p.Capabilities.Has(a).
func (p Principal) Can(a Action) bool {
	return p.Capabilities.Has(a)
}

// WithinApprovalCeiling reports whether amount is at or below the principal's ceiling.
func WithinApprovalCeiling(p Principal, amount decimal.Decimal) bool {
	if p.MaxApprovalAmount == nil {
		return true
	}
	return amount.Abs().LessThanOrEqual(*p.MaxApprovalAmount)
}

// CanView reports whether p may read entry. Owners always can; others need viewAll.
func CanView(p Principal, entry *JournalEntry) bool {
	if entry == nil || !sameWorkplace(p, entry) {
		return false
	}
	return entry.CreatedBy == p.UserID || p.Can(ActionViewAll)
}

// Authorize is the Permission Gate. entry may be nil for actions that do not target one.
func Authorize(p Principal, action Action, entry *JournalEntry) bool {
	if !p.Can(action) {
		return false
	}
	if entry == nil {
		return true
	}
	if !sameWorkplace(p, entry) {
		return false
	}
	owner := entry.CreatedBy == p.UserID

	switch action {
	case ActionEdit:
		if entry.Status != Draft && entry.Status != PendingApproval {
			return false
		}
		return owner || p.Can(ActionPost) || p.Can(ActionApprove)
	case ActionDelete:
		if entry.Status != Draft {
			return false
		}
		return owner || p.Can(ActionPost)
	case ActionRequestApproval:
		return owner || p.Can(ActionPost)
	case ActionApprove:
		return WithinApprovalCeiling(p, entry.AbsoluteTotal())
	case ActionPost, ActionReverse:
		return owner || p.Can(ActionViewAll)
	}
	return true
}

func sameWorkplace(p Principal, entry *JournalEntry) bool {
	return p.WorkplaceID == "" || entry.WorkplaceID == "" || p.WorkplaceID == entry.WorkplaceID
}
