package mapping

import (
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/models"
)

// ToModelJournalEntry converts the entry header. Lines and approvals are mapped separately.
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	return models.JournalEntry{
		EntryID:        d.EntryID,
		WorkplaceID:    d.WorkplaceID,
		EntryDate:      d.EntryDate,
		Reference:      d.Reference,
		Memo:           d.Memo,
		EntryTypeID:    d.EntryTypeID,
		Status:         models.EntryStatus(d.Status),
		ReversalOf:     d.ReversalOf,
		ReversedBy:     d.ReversedBy,
		ReversalReason: d.ReversalReason,
		Version:        d.Version,
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainJournalEntry assembles an entry from its header, lines and approval rows.
func ToDomainJournalEntry(m models.JournalEntry, lines []models.JournalLine, approvals []models.Approval) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:        m.EntryID,
		WorkplaceID:    m.WorkplaceID,
		EntryDate:      m.EntryDate,
		Reference:      m.Reference,
		Memo:           m.Memo,
		EntryTypeID:    m.EntryTypeID,
		Status:         domain.EntryStatus(m.Status),
		Lines:          ToDomainJournalLineSlice(lines),
		Approvals:      ToDomainApprovalSlice(approvals),
		ReversalOf:     m.ReversalOf,
		ReversedBy:     m.ReversedBy,
		ReversalReason: m.ReversalReason,
		Version:        m.Version,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelJournalLine converts a domain JournalLine to a model JournalLine
func ToModelJournalLine(d domain.JournalLine) models.JournalLine {
	return models.JournalLine{
		LineID:     d.LineID,
		EntryID:    d.EntryID,
		LineNo:     d.LineNo,
		AccountID:  d.AccountID,
		Debit:      d.Debit,
		Credit:     d.Credit,
		Memo:       d.Memo,
		Department: d.Department,
		Project:    d.Project,
		Location:   d.Location,
	}
}

// ToDomainJournalLineSlice converts model lines, keeping their order.
func ToDomainJournalLineSlice(ms []models.JournalLine) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(ms))
	for i, m := range ms {
		lines[i] = domain.JournalLine{
			LineID:     m.LineID,
			EntryID:    m.EntryID,
			LineNo:     m.LineNo,
			AccountID:  m.AccountID,
			Debit:      m.Debit,
			Credit:     m.Credit,
			Memo:       m.Memo,
			Department: m.Department,
			Project:    m.Project,
			Location:   m.Location,
		}
	}
	return lines
}

// ToModelApproval converts a domain Approval to a model Approval
func ToModelApproval(d domain.Approval) models.Approval {
	return models.Approval{
		ApprovalID:  d.ApprovalID,
		EntryID:     d.EntryID,
		RoundID:     d.RoundID,
		Status:      string(d.Status),
		RequestedBy: d.RequestedBy,
		Approver:    d.Approver,
		ResolvedBy:  d.ResolvedBy,
		RequestedAt: d.RequestedAt,
		ResolvedAt:  d.ResolvedAt,
		Comments:    d.Comments,
	}
}

// ToDomainApproval converts a model Approval to a domain Approval
func ToDomainApproval(m models.Approval) domain.Approval {
	return domain.Approval{
		ApprovalID:  m.ApprovalID,
		EntryID:     m.EntryID,
		RoundID:     m.RoundID,
		Status:      domain.ApprovalStatus(m.Status),
		RequestedBy: m.RequestedBy,
		Approver:    m.Approver,
		ResolvedBy:  m.ResolvedBy,
		RequestedAt: m.RequestedAt,
		ResolvedAt:  m.ResolvedAt,
		Comments:    m.Comments,
	}
}

// ToDomainApprovalSlice converts approval rows. The result is never nil.
func ToDomainApprovalSlice(ms []models.Approval) []domain.Approval {
	approvals := make([]domain.Approval, len(ms))
	for i, m := range ms {
		approvals[i] = ToDomainApproval(m)
	}
	return approvals
}
