package domain_test

import (
	"testing"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func entryOf(status domain.EntryStatus, owner string, amount int64) *domain.JournalEntry {
	return &domain.JournalEntry{
		EntryID:     "e1",
		WorkplaceID: "w1",
		Status:      status,
		Lines: []domain.JournalLine{
			{AccountID: "cash", Debit: decimal.NewFromInt(amount)},
			{AccountID: "revenue", Credit: decimal.NewFromInt(amount)},
		},
		AuditFields: domain.AuditFields{CreatedBy: owner},
	}
}

func principalOf(userID string, actions ...domain.Action) domain.Principal {
	return domain.Principal{UserID: userID, WorkplaceID: "w1", Capabilities: domain.NewCapabilitySet(actions...)}
}

func TestAuthorize(t *testing.T) {
	ceiling := decimal.NewFromInt(1000)
	approver := principalOf("bob", domain.ActionApprove)
	approver.MaxApprovalAmount = &ceiling

	tests := []struct {
		name   string
		p      domain.Principal
		action domain.Action
		entry  *domain.JournalEntry
		want   bool
	}{
		{"missing capability", principalOf("alice"), domain.ActionCreate, nil, false},
		{"create without entry", principalOf("alice", domain.ActionCreate), domain.ActionCreate, nil, true},
		{"owner edits draft", principalOf("alice", domain.ActionEdit), domain.ActionEdit, entryOf(domain.Draft, "alice", 10), true},
		{"stranger edits draft", principalOf("carol", domain.ActionEdit), domain.ActionEdit, entryOf(domain.Draft, "alice", 10), false},
		{"poster edits others draft", principalOf("carol", domain.ActionEdit, domain.ActionPost), domain.ActionEdit, entryOf(domain.Draft, "alice", 10), true},
		{"edit posted", principalOf("alice", domain.ActionEdit), domain.ActionEdit, entryOf(domain.Posted, "alice", 10), false},
		{"delete pending", principalOf("alice", domain.ActionDelete), domain.ActionDelete, entryOf(domain.PendingApproval, "alice", 10), false},
		{"approve within ceiling", approver, domain.ActionApprove, entryOf(domain.PendingApproval, "alice", 1000), true},
		{"approve above ceiling", approver, domain.ActionApprove, entryOf(domain.PendingApproval, "alice", 1001), false},
		{"reverse own entry", principalOf("alice", domain.ActionReverse), domain.ActionReverse, entryOf(domain.Posted, "alice", 10), true},
		{"reverse others without viewAll", principalOf("carol", domain.ActionReverse), domain.ActionReverse, entryOf(domain.Posted, "alice", 10), false},
		{"other workplace", domain.Principal{UserID: "alice", WorkplaceID: "w2", Capabilities: domain.NewCapabilitySet(domain.ActionEdit)}, domain.ActionEdit, entryOf(domain.Draft, "alice", 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Authorize(tt.p, tt.action, tt.entry))
		})
	}
}

func TestCanView(t *testing.T) {
	entry := entryOf(domain.Draft, "alice", 10)
	assert.True(t, domain.CanView(principalOf("alice"), entry))
	assert.False(t, domain.CanView(principalOf("bob"), entry))
	assert.True(t, domain.CanView(principalOf("bob", domain.ActionViewAll), entry))
	assert.False(t, domain.CanView(principalOf("bob", domain.ActionViewAll), nil))
}

func TestWithinApprovalCeiling(t *testing.T) {
	p := principalOf("bob", domain.ActionApprove)
	assert.True(t, domain.WithinApprovalCeiling(p, decimal.NewFromInt(1_000_000)), "no ceiling means unlimited")

	ceiling := decimal.NewFromInt(500)
	p.MaxApprovalAmount = &ceiling
	assert.True(t, domain.WithinApprovalCeiling(p, decimal.NewFromInt(-500)))
	assert.False(t, domain.WithinApprovalCeiling(p, decimal.RequireFromString("500.01")))
}

func TestParseAction(t *testing.T) {
	a, err := domain.ParseAction("requestApproval")
	assert.NoError(t, err)
	assert.Equal(t, domain.ActionRequestApproval, a)

	_, err = domain.ParseAction("superuser")
	assert.Error(t, err)
}
