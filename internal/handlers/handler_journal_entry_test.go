package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

func (suite *HandlerTestSuite) TestCreateEntry_Success() {
	body := map[string]any{
		"entryDate": "2024-01-31T00:00:00Z",
		"memo":      "January rent",
		"lines": []map[string]any{
			{"accountID": "cash", "debit": "100.00", "credit": "0"},
			{"accountID": "revenue", "debit": "0", "credit": "100.00"},
		},
	}
	created := sampleEntry("e1", domain.Draft)
	suite.entries.On("CreateEntry", mock.Anything, testWorkplaceID,
		mock.MatchedBy(func(req dto.CreateEntryRequest) bool {
			return req.Memo == "January rent" && len(req.Lines) == 2 && req.Lines[0].Debit.Equal(decimal.RequireFromString("100"))
		}), testUserID).Return(created, nil).Once()

	w := suite.do(http.MethodPost, entriesPath(""), body)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	resp := suite.decode(w)
	suite.Equal("e1", resp["entryID"])
	suite.Equal("DRAFT", resp["status"])
	suite.Equal([]any{}, resp["approvals"])
}

func (suite *HandlerTestSuite) TestCreateEntry_BadJSON() {
	w := suite.do(http.MethodPost, entriesPath(""), "{not json")

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(suite.decode(w)["error"], "Invalid request format")
	suite.entries.AssertNotCalled(suite.T(), "CreateEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestCreateEntry_NoToken() {
	req := httptest.NewRequest(http.MethodPost, entriesPath(""), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Authorization header format must be Bearer {token}", suite.decode(w)["error"])
}

func (suite *HandlerTestSuite) TestCreateEntry_DuplicateReference() {
	suite.entries.On("CreateEntry", mock.Anything, testWorkplaceID, mock.Anything, testUserID).
		Return(nil, fmt.Errorf("%w: reference JE-1 is already used", apperrors.ErrDuplicate)).Once()

	w := suite.do(http.MethodPost, entriesPath(""), map[string]any{"entryDate": "2024-01-31T00:00:00Z", "reference": "JE-1"})

	suite.Equal(http.StatusConflict, w.Code)
	resp := suite.decode(w)
	suite.Equal("DUPLICATE", resp["kind"])
	suite.Contains(resp["error"], "JE-1")
}

func (suite *HandlerTestSuite) TestListEntries_PassesQuery() {
	token := "abc"
	suite.entries.On("ListEntries", mock.Anything, testWorkplaceID, testUserID,
		dto.ListEntriesParams{Status: "POSTED", Limit: 10, NextToken: &token}).
		Return(&dto.ListEntriesResponse{
			Entries: []dto.JournalEntryResponse{dto.ToJournalEntryResponse(sampleEntry("e1", domain.Posted))},
		}, nil).Once()

	w := suite.do(http.MethodGet, entriesPath("?status=POSTED&limit=10&nextToken=abc"), nil)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	resp := suite.decode(w)
	suite.Len(resp["entries"], 1)
	suite.NotContains(resp, "nextToken")
}

func (suite *HandlerTestSuite) TestListEntries_InvalidQuery() {
	cases := map[string]string{
		"unknown status": "?status=ARCHIVED",
		"limit too big":  "?limit=1000",
		"negative limit": "?limit=-1",
	}
	for name, query := range cases {
		suite.Run(name, func() {
			w := suite.do(http.MethodGet, entriesPath(query), nil)
			suite.Equal(http.StatusBadRequest, w.Code)
			suite.Contains(suite.decode(w)["error"], "Invalid query parameters")
		})
	}
}

func (suite *HandlerTestSuite) TestValidateLines_ReturnsResult() {
	result := domain.ValidationResult{
		IsBalanced:   false,
		Errors:       []domain.ValidationIssue{{Code: domain.CodeUnbalanced, Message: "debits 10 do not equal credits 5"}},
		TotalDebits:  decimal.NewFromInt(10),
		TotalCredits: decimal.NewFromInt(5),
	}
	suite.entries.On("ValidateLines", mock.Anything, mock.AnythingOfType("dto.ValidateLinesRequest")).Return(result).Once()

	w := suite.do(http.MethodPost, entriesPath("/validate"), map[string]any{
		"lines": []map[string]any{
			{"accountID": "cash", "debit": "10"},
			{"accountID": "revenue", "credit": "5"},
		},
	})

	suite.Equal(http.StatusOK, w.Code)
	resp := suite.decode(w)
	suite.Equal(false, resp["isBalanced"])
	issues := resp["errors"].([]any)
	suite.Require().Len(issues, 1)
	suite.Equal("UNBALANCED", issues[0].(map[string]any)["code"])
}

func (suite *HandlerTestSuite) TestGetEntry_NotFound() {
	suite.entries.On("GetEntry", mock.Anything, testWorkplaceID, "missing", testUserID).
		Return(nil, apperrors.NewNotFoundError("journal entry missing")).Once()

	w := suite.do(http.MethodGet, entriesPath("/missing"), nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("NOT_FOUND", suite.decode(w)["kind"])
}

func (suite *HandlerTestSuite) TestUpdateEntry_Frozen() {
	memo := "new memo"
	suite.entries.On("UpdateEntry", mock.Anything, testWorkplaceID, "e1",
		dto.UpdateEntryRequest{Memo: &memo}, testUserID).
		Return(nil, &apperrors.TransitionError{From: string(domain.Posted), Event: "SAVE"}).Once()

	w := suite.do(http.MethodPut, entriesPath("/e1"), map[string]any{"memo": memo})

	suite.Equal(http.StatusConflict, w.Code)
	resp := suite.decode(w)
	suite.Equal("INVALID_TRANSITION", resp["kind"])
	suite.Equal("POSTED", resp["from"])
	suite.Equal("SAVE", resp["event"])
}

func (suite *HandlerTestSuite) TestDeleteEntry_NoContent() {
	suite.entries.On("DeleteEntry", mock.Anything, testWorkplaceID, "e1", testUserID).Return(nil).Once()

	w := suite.do(http.MethodDelete, entriesPath("/e1"), nil)

	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(w.Body.String())
}

func (suite *HandlerTestSuite) TestDeleteEntry_PermissionDenied() {
	suite.entries.On("DeleteEntry", mock.Anything, testWorkplaceID, "e1", testUserID).
		Return(fmt.Errorf("%w: user %s may not delete entry e1", apperrors.ErrPermissionDenied, testUserID)).Once()

	w := suite.do(http.MethodDelete, entriesPath("/e1"), nil)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal("PERMISSION_DENIED", suite.decode(w)["kind"])
}

func (suite *HandlerTestSuite) TestPostEntry_Unbalanced() {
	result := domain.ValidationResult{
		Errors:       []domain.ValidationIssue{{Code: domain.CodeUnbalanced, Message: "debits 10 do not equal credits 5"}},
		TotalDebits:  decimal.NewFromInt(10),
		TotalCredits: decimal.NewFromInt(5),
	}
	suite.entries.On("PostEntry", mock.Anything, testWorkplaceID, "e1", testUserID).
		Return(nil, domain.NewValidationError(result)).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/post"), nil)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	resp := suite.decode(w)
	suite.Equal("VALIDATION_FAILED", resp["kind"])
	validation := resp["validation"].(map[string]any)
	suite.Equal(false, validation["isBalanced"])
}

func (suite *HandlerTestSuite) TestPostEntry_Success() {
	suite.entries.On("PostEntry", mock.Anything, testWorkplaceID, "e1", testUserID).
		Return(sampleEntry("e1", domain.Posted), nil).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/post"), nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("POSTED", suite.decode(w)["status"])
}

func (suite *HandlerTestSuite) TestPostEntry_InternalErrorHidesCause() {
	suite.entries.On("PostEntry", mock.Anything, testWorkplaceID, "e1", testUserID).
		Return(nil, errors.New("pq: connection reset by peer")).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/post"), nil)

	suite.Equal(http.StatusInternalServerError, w.Code)
	resp := suite.decode(w)
	suite.Equal("Failed to post journal entry", resp["error"])
	suite.Equal("INTERNAL", resp["kind"])
	suite.NotContains(w.Body.String(), "connection reset")
}
