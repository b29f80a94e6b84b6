package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/core/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/platform/config"
	"github.com/SscSPs/journal_ledger/internal/repositories/memory"
	"github.com/SscSPs/journal_ledger/internal/utils/locking"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testWorkplaceID = "wp-1"

	userAlice = "alice" // bookkeeper: creates, posts and reverses her own entries
	userBob   = "bob"   // approver with a 1000 ceiling
	userCarol = "carol" // approver without a ceiling
	userDave  = "dave"  // clerk: create only
)

// --- Mock InventoryGateway ---
type MockInventoryGateway struct {
	mock.Mock
}

var _ portssvc.InventoryGateway = (*MockInventoryGateway)(nil)

func (m *MockInventoryGateway) HasLinkedMovements(ctx context.Context, entryID string) (bool, error) {
	args := m.Called(ctx, entryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInventoryGateway) ReverseInventoryFor(ctx context.Context, entryID string) (domain.InventoryReversal, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).(domain.InventoryReversal), args.Error(1)
}

// recordingNotifier keeps every event it was handed.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event domain.LedgerEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []domain.LedgerEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]domain.LedgerEventType, len(n.events))
	for i, ev := range n.events {
		types[i] = ev.Type
	}
	return types
}

// --- Shared ledger fixture ---
type ledgerSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	repos     portsrepo.RepositoryProvider
	inventory *MockInventoryGateway
	notifier  *recordingNotifier
	svc       *portssvc.ServiceContainer
}

func (suite *ledgerSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.repos = memory.NewRepositoryProvider(suite.store)
	suite.inventory = new(MockInventoryGateway)
	suite.notifier = &recordingNotifier{}

	suite.seedPrincipal(userAlice, nil, domain.ActionCreate, domain.ActionEdit, domain.ActionDelete,
		domain.ActionRequestApproval, domain.ActionPost, domain.ActionReverse)
	bobCeiling := decimal.NewFromInt(1000)
	suite.seedPrincipal(userBob, &bobCeiling, domain.ActionApprove, domain.ActionViewAll)
	suite.seedPrincipal(userCarol, nil, domain.ActionApprove, domain.ActionViewAll)
	suite.seedPrincipal(userDave, nil, domain.ActionCreate)

	accounts := memory.NewAccountDirectory(suite.store)
	for _, a := range []domain.Account{
		{AccountID: "cash", AccountType: domain.Asset, IsActive: true},
		{AccountID: "revenue", AccountType: domain.Revenue, IsActive: true},
		{AccountID: "expense", AccountType: domain.Expense, IsActive: true},
		{AccountID: "closed", AccountType: domain.Asset, IsActive: false},
	} {
		a.WorkplaceID = testWorkplaceID
		a.Name = a.AccountID
		accounts.SaveAccount(a)
	}

	suite.svc = suite.newContainer(suiteConfig(domain.PolicyFirstResponder))
}

func (suite *ledgerSuite) newContainer(cfg config.Config) *portssvc.ServiceContainer {
	return services.NewServiceContainer(&cfg, suite.repos, suite.inventory,
		services.WithNotifier(suite.notifier),
		services.WithLocker(locking.NewKeyedMutex()))
}

func (suite *ledgerSuite) seedPrincipal(userID string, ceiling *decimal.Decimal, actions ...domain.Action) {
	err := suite.repos.PermissionRepo.SavePrincipal(suite.ctx, domain.Principal{
		UserID:            userID,
		WorkplaceID:       testWorkplaceID,
		Capabilities:      domain.NewCapabilitySet(actions...),
		MaxApprovalAmount: ceiling,
	})
	suite.Require().NoError(err)
}

func balancedLines(amount int64) []dto.JournalLineRequest {
	return []dto.JournalLineRequest{
		{AccountID: "cash", Debit: decimal.NewFromInt(amount)},
		{AccountID: "revenue", Credit: decimal.NewFromInt(amount)},
	}
}

// createDraft creates a draft as userID and fails the test on error.
func (suite *ledgerSuite) createDraft(userID, reference string, date time.Time, lines []dto.JournalLineRequest) *domain.JournalEntry {
	entry, err := suite.svc.JournalEntry.CreateEntry(suite.ctx, testWorkplaceID, dto.CreateEntryRequest{
		EntryDate: date,
		Reference: reference,
		Memo:      "test entry " + reference,
		Lines:     lines,
	}, userID)
	suite.Require().NoError(err)
	return entry
}

func (suite *ledgerSuite) postedEntry(reference string, amount int64) *domain.JournalEntry {
	draft := suite.createDraft(userAlice, reference, testDate, balancedLines(amount))
	posted, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	suite.Require().NoError(err)
	return posted
}

func (suite *ledgerSuite) routedEntry(reference string, amount int64, approvers ...string) (*domain.JournalEntry, []domain.Approval) {
	draft := suite.createDraft(userAlice, reference, testDate, balancedLines(amount))
	approvals, err := suite.svc.Approval.RouteForApproval(suite.ctx, testWorkplaceID, draft.EntryID,
		dto.RequestApprovalRequest{ApproverIDs: approvers}, userAlice)
	suite.Require().NoError(err)
	return draft, approvals
}

func (suite *ledgerSuite) reload(entryID string) *domain.JournalEntry {
	entry, err := suite.repos.EntryRepo.FindEntryByID(suite.ctx, entryID)
	suite.Require().NoError(err)
	return entry
}

var testDate = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

func approvalFor(approvals []domain.Approval, approver string) domain.Approval {
	for _, a := range approvals {
		if a.Approver == approver {
			return a
		}
	}
	return domain.Approval{}
}

func suiteConfig(policy domain.ApprovalPolicy) config.Config {
	return config.Config{ApprovalPolicy: string(policy)}
}
