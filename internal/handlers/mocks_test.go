package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// --- Mock JournalEntryService ---
type MockJournalEntryService struct {
	mock.Mock
}

var _ portssvc.JournalEntrySvcFacade = (*MockJournalEntryService)(nil)

func (m *MockJournalEntryService) GetEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, workplaceID, entryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryService) ListEntries(ctx context.Context, workplaceID, userID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, workplaceID, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}

func (m *MockJournalEntryService) ValidateLines(ctx context.Context, req dto.ValidateLinesRequest) domain.ValidationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ValidationResult)
}

func (m *MockJournalEntryService) CreateEntry(ctx context.Context, workplaceID string, req dto.CreateEntryRequest, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, workplaceID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryService) UpdateEntry(ctx context.Context, workplaceID, entryID string, req dto.UpdateEntryRequest, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, workplaceID, entryID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryService) DeleteEntry(ctx context.Context, workplaceID, entryID, userID string) error {
	args := m.Called(ctx, workplaceID, entryID, userID)
	return args.Error(0)
}

func (m *MockJournalEntryService) PostEntry(ctx context.Context, workplaceID, entryID, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, workplaceID, entryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

// --- Mock ApprovalService ---
type MockApprovalService struct {
	mock.Mock
}

var _ portssvc.ApprovalSvcFacade = (*MockApprovalService)(nil)

func (m *MockApprovalService) RouteForApproval(ctx context.Context, workplaceID, entryID string, req dto.RequestApprovalRequest, userID string) ([]domain.Approval, error) {
	args := m.Called(ctx, workplaceID, entryID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Approval), args.Error(1)
}

func (m *MockApprovalService) Resolve(ctx context.Context, workplaceID, approvalID string, req dto.ResolveApprovalRequest, userID string) (*domain.ResolvedApproval, error) {
	args := m.Called(ctx, workplaceID, approvalID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResolvedApproval), args.Error(1)
}

func (m *MockApprovalService) ListPendingForApprover(ctx context.Context, workplaceID, userID string) ([]domain.PendingApprovalView, error) {
	args := m.Called(ctx, workplaceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingApprovalView), args.Error(1)
}

func (m *MockApprovalService) ListApprovalHistory(ctx context.Context, workplaceID, entryID, userID string) ([]domain.Approval, error) {
	args := m.Called(ctx, workplaceID, entryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Approval), args.Error(1)
}

// --- Mock ReversalService ---
type MockReversalService struct {
	mock.Mock
}

var _ portssvc.ReversalSvc = (*MockReversalService)(nil)

func (m *MockReversalService) Reverse(ctx context.Context, workplaceID, entryID string, req dto.ReverseEntryRequest, userID string) (*domain.ReversalResult, error) {
	args := m.Called(ctx, workplaceID, entryID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReversalResult), args.Error(1)
}

// --- Mock BatchService ---
type MockBatchService struct {
	mock.Mock
}

var _ portssvc.BatchSvcFacade = (*MockBatchService)(nil)

func (m *MockBatchService) RunBatch(ctx context.Context, workplaceID string, req dto.BatchRequest, userID string) (*domain.BatchOperationResult, error) {
	args := m.Called(ctx, workplaceID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchOperationResult), args.Error(1)
}

func (m *MockBatchService) RunImport(ctx context.Context, workplaceID string, r io.Reader, opts dto.ImportOptions, userID string) (*domain.BatchOperationResult, error) {
	content, _ := io.ReadAll(r)
	args := m.Called(ctx, workplaceID, string(content), opts, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchOperationResult), args.Error(1)
}
