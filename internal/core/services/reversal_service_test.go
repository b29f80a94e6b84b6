package services_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/journal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/journal_ledger/internal/core/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ReversalServiceTestSuite struct {
	ledgerSuite
}

func (suite *ReversalServiceTestSuite) reverse(entryID, reason string) (*domain.ReversalResult, error) {
	return suite.svc.Reversal.Reverse(suite.ctx, testWorkplaceID, entryID, dto.ReverseEntryRequest{Reason: reason}, userAlice)
}

func (suite *ReversalServiceTestSuite) TestReverse_Success() {
	posted := suite.postedEntry("RV-1", 300)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(false, nil).Once()

	result, err := suite.reverse(posted.EntryID, "  duplicate invoice ")
	suite.Require().NoError(err)

	suite.Equal(domain.Reversed, result.Original.Status)
	suite.Require().NotNil(result.Original.ReversedBy)
	suite.Equal(result.Reversal.EntryID, *result.Original.ReversedBy)
	suite.Equal("duplicate invoice", result.Original.ReversalReason)

	suite.Equal(domain.Posted, result.Reversal.Status)
	suite.Equal("RV-1-REV", result.Reversal.Reference)
	suite.Require().NotNil(result.Reversal.ReversalOf)
	suite.Equal(posted.EntryID, *result.Reversal.ReversalOf)
	suite.Zero(result.InventoryMovementsReversed)

	original := suite.reload(posted.EntryID)
	mirror := suite.reload(result.Reversal.EntryID)
	suite.Equal(domain.Reversed, original.Status)
	for account, net := range domain.NetByAccount(original, mirror) {
		suite.True(net.IsZero(), "account %s nets to %s", account, net)
	}
	suite.True(original.TotalDebits().Equal(decimal.NewFromInt(300)), "original lines are untouched")

	suite.Contains(suite.notifier.types(), domain.EventEntryReversed)
	suite.inventory.AssertExpectations(suite.T())
}

func (suite *ReversalServiceTestSuite) TestReverse_WithInventory() {
	posted := suite.postedEntry("RV-2", 40)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(true, nil).Once()
	suite.inventory.On("ReverseInventoryFor", mock.Anything, posted.EntryID).
		Return(domain.InventoryReversal{MovementsReversed: 3, StockRestored: 7}, nil).Once()

	result, err := suite.reverse(posted.EntryID, "returned goods")
	suite.Require().NoError(err)
	suite.Equal(3, result.InventoryMovementsReversed)
	suite.Equal(7, result.StockRestored)
	suite.inventory.AssertExpectations(suite.T())
}

func (suite *ReversalServiceTestSuite) TestReverse_InventoryFailureRollsBack() {
	posted := suite.postedEntry("RV-3", 40)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(true, nil).Once()
	suite.inventory.On("ReverseInventoryFor", mock.Anything, posted.EntryID).
		Return(domain.InventoryReversal{}, errors.New("warehouse offline")).Once()

	_, err := suite.reverse(posted.EntryID, "returned goods")
	suite.ErrorIs(err, apperrors.ErrDependencyFailure)
	suite.Equal(apperrors.KindDependencyFailure, apperrors.KindOf(err))

	stored := suite.reload(posted.EntryID)
	suite.Equal(domain.Posted, stored.Status)
	suite.Nil(stored.ReversedBy)
	exists, err := suite.repos.EntryRepo.ReferenceExists(suite.ctx, testWorkplaceID, "RV-3-REV")
	suite.Require().NoError(err)
	suite.False(exists, "no reversal entry survives the rollback")
	suite.NotContains(suite.notifier.types(), domain.EventEntryReversed)
}

func (suite *ReversalServiceTestSuite) TestReverse_Twice() {
	posted := suite.postedEntry("RV-4", 10)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(false, nil).Once()

	_, err := suite.reverse(posted.EntryID, "first")
	suite.Require().NoError(err)
	_, err = suite.reverse(posted.EntryID, "second")
	suite.ErrorIs(err, apperrors.ErrAlreadyReversed)
	suite.inventory.AssertNumberOfCalls(suite.T(), "HasLinkedMovements", 1)
}

func (suite *ReversalServiceTestSuite) TestReverse_Rejections() {
	draft := suite.createDraft(userAlice, "RV-5", testDate, balancedLines(10))
	_, err := suite.reverse(draft.EntryID, "x")
	suite.ErrorIs(err, apperrors.ErrNotPosted)

	posted := suite.postedEntry("RV-6", 10)
	_, err = suite.reverse(posted.EntryID, "   ")
	suite.ErrorIs(err, apperrors.ErrReasonRequired)

	_, err = suite.svc.Reversal.Reverse(suite.ctx, testWorkplaceID, posted.EntryID, dto.ReverseEntryRequest{Reason: "x"}, userDave)
	suite.ErrorIs(err, apperrors.ErrPermissionDenied)

	_, err = suite.reverse("missing", "x")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.inventory.AssertNotCalled(suite.T(), "HasLinkedMovements", mock.Anything, mock.Anything)
}

func (suite *ReversalServiceTestSuite) TestReverse_EffectiveDateAndReferenceClash() {
	posted := suite.postedEntry("RV-7", 10)
	suite.createDraft(userAlice, "RV-7-REV", testDate, nil)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(false, nil).Once()

	effective := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	result, err := suite.svc.Reversal.Reverse(suite.ctx, testWorkplaceID, posted.EntryID,
		dto.ReverseEntryRequest{Reason: "period close", EffectiveDate: &effective}, userAlice)
	suite.Require().NoError(err)
	suite.Equal(effective, result.Reversal.EntryDate)
	suite.True(strings.HasPrefix(result.Reversal.Reference, "RV-7-REV-"), result.Reversal.Reference)
}

var errCommitLost = errors.New("commit: connection lost")

// commitFailingRepo runs the unit of work and then fails as a lost commit would.
type commitFailingRepo struct {
	portsrepo.JournalEntryRepositoryWithTx
}

func (r commitFailingRepo) WithTx(ctx context.Context, fn func(ctx context.Context, repo portsrepo.JournalEntryRepositoryFacade) error) error {
	return r.JournalEntryRepositoryWithTx.WithTx(ctx, func(ctx context.Context, repo portsrepo.JournalEntryRepositoryFacade) error {
		if err := fn(ctx, repo); err != nil {
			return err
		}
		return errCommitLost
	})
}

func (suite *ReversalServiceTestSuite) TestReverse_CommitFailsAfterInventory() {
	posted := suite.postedEntry("RV-9", 40)
	suite.inventory.On("HasLinkedMovements", mock.Anything, posted.EntryID).Return(true, nil).Once()
	suite.inventory.On("ReverseInventoryFor", mock.Anything, posted.EntryID).
		Return(domain.InventoryReversal{MovementsReversed: 2, StockRestored: 4}, nil).Once()

	var logs bytes.Buffer
	ctx := middleware.WithLogger(suite.ctx, slog.New(slog.NewJSONHandler(&logs, nil)))
	svc := services.NewReversalService(commitFailingRepo{suite.repos.EntryRepo}, suite.repos.PermissionRepo, suite.inventory)

	_, err := svc.Reverse(ctx, testWorkplaceID, posted.EntryID, dto.ReverseEntryRequest{Reason: "returned goods"}, userAlice)
	suite.ErrorIs(err, errCommitLost)

	suite.Equal(domain.Posted, suite.reload(posted.EntryID).Status)
	suite.Contains(logs.String(), "Ledger commit failed after inventory was reversed")
	suite.Contains(logs.String(), `"inventory_movements_reversed":2`)
	suite.inventory.AssertExpectations(suite.T())
}

func TestReversalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReversalServiceTestSuite))
}
