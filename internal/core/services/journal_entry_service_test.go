package services_test

import (
	"strings"
	"testing"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type JournalEntryServiceTestSuite struct {
	ledgerSuite
}

func (suite *JournalEntryServiceTestSuite) TestCreateAndPost() {
	draft := suite.createDraft(userAlice, "INV-100", testDate, balancedLines(250))

	suite.Equal(domain.Draft, draft.Status)
	suite.Equal(int64(1), draft.Version)
	suite.Equal("INV-100", draft.Reference)
	suite.Len(draft.Lines, 2)
	suite.Equal(1, draft.Lines[0].LineNo)
	suite.NotEmpty(draft.Lines[0].LineID)

	posted, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	suite.Require().NoError(err)
	suite.Equal(domain.Posted, posted.Status)
	suite.Equal(int64(2), posted.Version)

	stored := suite.reload(draft.EntryID)
	suite.Equal(domain.Posted, stored.Status)
	suite.True(stored.TotalDebits().Equal(decimal.NewFromInt(250)))
	suite.Equal([]domain.LedgerEventType{domain.EventEntryPosted}, suite.notifier.types())
}

func (suite *JournalEntryServiceTestSuite) TestCreate_GeneratesReference() {
	draft := suite.createDraft(userAlice, "  ", testDate, nil)
	suite.True(strings.HasPrefix(draft.Reference, "JE-20240131-"), draft.Reference)
	suite.Empty(draft.Lines)
}

func (suite *JournalEntryServiceTestSuite) TestCreate_DuplicateReference() {
	suite.createDraft(userAlice, "INV-1", testDate, nil)
	_, err := suite.svc.JournalEntry.CreateEntry(suite.ctx, testWorkplaceID, dto.CreateEntryRequest{
		EntryDate: testDate,
		Reference: "INV-1",
	}, userDave)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *JournalEntryServiceTestSuite) TestCreate_PermissionDenied() {
	req := dto.CreateEntryRequest{EntryDate: testDate, Lines: balancedLines(1)}

	_, err := suite.svc.JournalEntry.CreateEntry(suite.ctx, testWorkplaceID, req, userBob)
	suite.ErrorIs(err, apperrors.ErrPermissionDenied)

	_, err = suite.svc.JournalEntry.CreateEntry(suite.ctx, testWorkplaceID, req, "mallory")
	suite.ErrorIs(err, apperrors.ErrPermissionDenied, "users without a grant are denied")

	_, err = suite.svc.JournalEntry.CreateEntry(suite.ctx, "wp-other", req, userAlice)
	suite.ErrorIs(err, apperrors.ErrPermissionDenied)
}

func (suite *JournalEntryServiceTestSuite) TestPost_Unbalanced() {
	draft := suite.createDraft(userAlice, "INV-2", testDate, []dto.JournalLineRequest{
		{AccountID: "cash", Debit: decimal.NewFromInt(100)},
		{AccountID: "revenue", Credit: decimal.NewFromInt(90)},
	})

	_, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	var verr *domain.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.True(verr.Result.Has(domain.CodeUnbalanced))
	suite.Equal(apperrors.KindValidationFailed, apperrors.KindOf(err))

	stored := suite.reload(draft.EntryID)
	suite.Equal(domain.Draft, stored.Status)
	suite.Equal(int64(1), stored.Version)
	suite.Empty(suite.notifier.types())
}

func (suite *JournalEntryServiceTestSuite) TestPost_UnknownOrInactiveAccount() {
	draft := suite.createDraft(userAlice, "INV-3", testDate, []dto.JournalLineRequest{
		{AccountID: "nowhere", Debit: decimal.NewFromInt(10)},
		{AccountID: "closed", Credit: decimal.NewFromInt(10)},
	})

	_, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	var verr *domain.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Equal([]domain.ValidationCode{domain.CodeMissingAccount, domain.CodeMissingAccount}, verr.Result.Codes())
	suite.Equal(0, *verr.Result.Errors[0].LineIndex)
	suite.Equal(1, *verr.Result.Errors[1].LineIndex)
}

func (suite *JournalEntryServiceTestSuite) TestPost_AlreadyPosted() {
	posted := suite.postedEntry("INV-4", 10)

	_, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, posted.EntryID, userAlice)
	var terr *apperrors.TransitionError
	suite.Require().ErrorAs(err, &terr)
	suite.Equal(string(domain.Posted), terr.From)
	suite.Equal(string(domain.EventPost), terr.Event)
}

func (suite *JournalEntryServiceTestSuite) TestPost_OtherWorkplaceIsNotFound() {
	draft := suite.createDraft(userAlice, "INV-5", testDate, balancedLines(10))
	_, err := suite.svc.JournalEntry.PostEntry(suite.ctx, "wp-other", draft.EntryID, userAlice)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *JournalEntryServiceTestSuite) TestUpdate_Draft() {
	draft := suite.createDraft(userAlice, "INV-6", testDate, balancedLines(10))
	memo := "corrected"
	newDate := testDate.AddDate(0, 0, 1)

	updated, err := suite.svc.JournalEntry.UpdateEntry(suite.ctx, testWorkplaceID, draft.EntryID, dto.UpdateEntryRequest{
		Memo:      &memo,
		EntryDate: &newDate,
		Lines:     balancedLines(75),
	}, userAlice)
	suite.Require().NoError(err)
	suite.Equal(domain.Draft, updated.Status)
	suite.Equal(int64(2), updated.Version)
	suite.Equal("INV-6", updated.Reference)

	stored := suite.reload(draft.EntryID)
	suite.Equal("corrected", stored.Memo)
	suite.Equal(newDate, stored.EntryDate)
	suite.True(stored.TotalCredits().Equal(decimal.NewFromInt(75)))
}

func (suite *JournalEntryServiceTestSuite) TestUpdate_ReferenceRules() {
	suite.createDraft(userAlice, "INV-7", testDate, nil)
	draft := suite.createDraft(userAlice, "INV-8", testDate, nil)

	taken := "INV-7"
	_, err := suite.svc.JournalEntry.UpdateEntry(suite.ctx, testWorkplaceID, draft.EntryID, dto.UpdateEntryRequest{Reference: &taken}, userAlice)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	blank := " "
	_, err = suite.svc.JournalEntry.UpdateEntry(suite.ctx, testWorkplaceID, draft.EntryID, dto.UpdateEntryRequest{Reference: &blank}, userAlice)
	suite.ErrorIs(err, apperrors.ErrValidationFailed)
}

func (suite *JournalEntryServiceTestSuite) TestUpdate_PostedIsFrozen() {
	posted := suite.postedEntry("INV-9", 10)
	memo := "too late"

	_, err := suite.svc.JournalEntry.UpdateEntry(suite.ctx, testWorkplaceID, posted.EntryID, dto.UpdateEntryRequest{Memo: &memo}, userAlice)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.NotEqual("too late", suite.reload(posted.EntryID).Memo)
}

func (suite *JournalEntryServiceTestSuite) TestUpdate_NotOwner() {
	draft := suite.createDraft(userDave, "INV-10", testDate, nil)
	memo := "mine now"

	// dave holds no edit capability at all
	_, err := suite.svc.JournalEntry.UpdateEntry(suite.ctx, testWorkplaceID, draft.EntryID, dto.UpdateEntryRequest{Memo: &memo}, userDave)
	suite.ErrorIs(err, apperrors.ErrPermissionDenied)
}

func (suite *JournalEntryServiceTestSuite) TestDelete() {
	draft := suite.createDraft(userAlice, "INV-11", testDate, nil)
	suite.Require().NoError(suite.svc.JournalEntry.DeleteEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice))

	_, err := suite.svc.JournalEntry.GetEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	posted := suite.postedEntry("INV-12", 10)
	err = suite.svc.JournalEntry.DeleteEntry(suite.ctx, testWorkplaceID, posted.EntryID, userAlice)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *JournalEntryServiceTestSuite) TestGet_Visibility() {
	draft := suite.createDraft(userDave, "INV-13", testDate, nil)

	_, err := suite.svc.JournalEntry.GetEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
	suite.ErrorIs(err, apperrors.ErrPermissionDenied)

	got, err := suite.svc.JournalEntry.GetEntry(suite.ctx, testWorkplaceID, draft.EntryID, userBob)
	suite.Require().NoError(err)
	suite.Equal(draft.EntryID, got.EntryID)

	got, err = suite.svc.JournalEntry.GetEntry(suite.ctx, testWorkplaceID, draft.EntryID, userDave)
	suite.Require().NoError(err)
	suite.Equal("INV-13", got.Reference)
}

func (suite *JournalEntryServiceTestSuite) TestList_PagesNewestFirst() {
	for i, ref := range []string{"L-1", "L-2", "L-3"} {
		suite.createDraft(userAlice, ref, testDate.AddDate(0, 0, i), nil)
	}
	suite.createDraft(userDave, "L-DAVE", testDate.AddDate(0, 0, 10), nil)

	page, err := suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userAlice, dto.ListEntriesParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page.Entries, 2)
	suite.Equal("L-3", page.Entries[0].Reference)
	suite.Equal("L-2", page.Entries[1].Reference)
	suite.Require().NotNil(page.NextToken)

	page, err = suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userAlice, dto.ListEntriesParams{Limit: 2, NextToken: page.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(page.Entries, 1)
	suite.Equal("L-1", page.Entries[0].Reference)
	suite.Nil(page.NextToken)

	all, err := suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userBob, dto.ListEntriesParams{})
	suite.Require().NoError(err)
	suite.Len(all.Entries, 4, "viewAll sees every author")
	suite.Equal("L-DAVE", all.Entries[0].Reference)
}

func (suite *JournalEntryServiceTestSuite) TestList_StatusFilter() {
	suite.createDraft(userAlice, "S-1", testDate, nil)
	suite.postedEntry("S-2", 5)

	page, err := suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userAlice, dto.ListEntriesParams{Status: "POSTED"})
	suite.Require().NoError(err)
	suite.Require().Len(page.Entries, 1)
	suite.Equal("S-2", page.Entries[0].Reference)

	_, err = suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userAlice, dto.ListEntriesParams{Status: "ARCHIVED"})
	suite.ErrorIs(err, apperrors.ErrValidationFailed)

	bad := "not-a-token"
	_, err = suite.svc.JournalEntry.ListEntries(suite.ctx, testWorkplaceID, userAlice, dto.ListEntriesParams{NextToken: &bad})
	suite.Equal(400, apperrors.HTTPStatus(err))
}

func (suite *JournalEntryServiceTestSuite) TestValidateLines() {
	result := suite.svc.JournalEntry.ValidateLines(suite.ctx, dto.ValidateLinesRequest{Lines: []dto.JournalLineRequest{
		{AccountID: "cash", Debit: decimal.NewFromInt(5), Credit: decimal.NewFromInt(5)},
	}})
	suite.False(result.IsBalanced)
	suite.True(result.Has(domain.CodeBothSides))

	result = suite.svc.JournalEntry.ValidateLines(suite.ctx, dto.ValidateLinesRequest{Lines: balancedLines(3)})
	suite.True(result.IsBalanced)
}

func (suite *JournalEntryServiceTestSuite) TestConcurrentPostHasOneWinner() {
	draft := suite.createDraft(userAlice, "RACE-1", testDate, balancedLines(10))

	errs := make(chan error, 8)
	for range 8 {
		go func() {
			_, err := suite.svc.JournalEntry.PostEntry(suite.ctx, testWorkplaceID, draft.EntryID, userAlice)
			errs <- err
		}()
	}
	wins := 0
	for range 8 {
		if err := <-errs; err == nil {
			wins++
		} else {
			suite.ErrorIs(err, apperrors.ErrInvalidTransition)
		}
	}
	suite.Equal(1, wins)
	suite.Equal(int64(2), suite.reload(draft.EntryID).Version)
}

func (suite *JournalEntryServiceTestSuite) TestContainer_ZeroBatchLimitsUseDefaults() {
	res, err := suite.svc.Batch.RunBatch(suite.ctx, testWorkplaceID, dto.BatchRequest{Operation: "post", EntryIDs: []string{"unknown"}}, userAlice)
	suite.Require().NoError(err)
	suite.Equal([]string{"unknown"}, res.Excluded)
	suite.Equal(0, res.Summary.Total)
}

func TestJournalEntryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(JournalEntryServiceTestSuite))
}
