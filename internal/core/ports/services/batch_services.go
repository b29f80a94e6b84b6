package services

import (
	"context"
	"io"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

// BatchRunnerSvc applies one lifecycle operation to many entries with per-item isolation.
type BatchRunnerSvc interface {
	RunBatch(ctx context.Context, workplaceID string, req dto.BatchRequest, userID string) (*domain.BatchOperationResult, error)
}

// ImportSvc creates entries from an uploaded CSV file.
type ImportSvc interface {
	RunImport(ctx context.Context, workplaceID string, r io.Reader, opts dto.ImportOptions, userID string) (*domain.BatchOperationResult, error)
}

// BatchSvcFacade combines the batch and import services.
type BatchSvcFacade interface {
	BatchRunnerSvc
	ImportSvc
}
