package services

import (
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// opts (notifier, locker, clock) are shared by every service.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, inventory portssvc.InventoryGateway, opts ...BaseOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.JournalEntry = NewJournalEntryService(repos.EntryRepo, repos.PermissionRepo, repos.Accounts, opts...)
	container.Approval = NewApprovalService(repos.EntryRepo, repos.PermissionRepo, repos.Accounts,
		domain.ApprovalPolicy(cfg.ApprovalPolicy), opts...)
	container.Reversal = NewReversalService(repos.EntryRepo, repos.PermissionRepo, inventory, opts...)

	// Batch and import drive the single-entry services so every item gets the same checks.
	container.Batch = NewBatchService(repos.EntryRepo, repos.PermissionRepo, repos.Accounts,
		container.JournalEntry, container.Approval, container.Reversal,
		BatchLimits{Concurrency: cfg.BatchConcurrency, MaxItems: cfg.BatchMaxItems}, opts...)

	return container
}
