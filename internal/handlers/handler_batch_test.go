package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/dto"
	"github.com/SscSPs/journal_ledger/internal/handlers"
	"github.com/SscSPs/journal_ledger/internal/platform/config"
)

const importCSV = "entry_key,date,reference,account_id,debit,credit\n" +
	"A,2024-01-31,IMP-1,cash,100,\n" +
	"A,2024-01-31,IMP-1,revenue,,100\n"

func decodeInto(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func (suite *HandlerTestSuite) TestReverse_Created() {
	original := sampleEntry("e1", domain.Reversed)
	reversal := sampleEntry("e2", domain.Posted)
	reversalOf := "e1"
	reversal.ReversalOf = &reversalOf
	suite.reversals.On("Reverse", mock.Anything, testWorkplaceID, "e1",
		dto.ReverseEntryRequest{Reason: "duplicate booking"}, testUserID).
		Return(&domain.ReversalResult{Original: original, Reversal: reversal, InventoryMovementsReversed: 2, StockRestored: 5}, nil).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/reverse"), map[string]any{"reason": "duplicate booking"})

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	resp := suite.decode(w)
	suite.Equal("REVERSED", resp["original"].(map[string]any)["status"])
	suite.Equal("e1", resp["reversal"].(map[string]any)["reversalOf"])
	suite.EqualValues(2, resp["inventoryMovementsReversed"])
	suite.EqualValues(5, resp["stockRestored"])
}

func (suite *HandlerTestSuite) TestReverse_InventoryUnavailable() {
	suite.reversals.On("Reverse", mock.Anything, testWorkplaceID, "e1", mock.Anything, testUserID).
		Return(nil, fmt.Errorf("%w: inventory service: circuit breaker is open", apperrors.ErrDependencyFailure)).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/reverse"), map[string]any{"reason": "wrong period"})

	suite.Equal(http.StatusBadGateway, w.Code)
	resp := suite.decode(w)
	suite.Equal("DEPENDENCY_FAILURE", resp["kind"])
	suite.Equal("Failed to reverse journal entry: a dependent service is unavailable", resp["error"])
}

func (suite *HandlerTestSuite) TestReverse_ReasonRequired() {
	suite.reversals.On("Reverse", mock.Anything, testWorkplaceID, "e1", mock.Anything, testUserID).
		Return(nil, apperrors.ErrReasonRequired).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/reverse"), map[string]any{"reason": "  "})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("REASON_REQUIRED", suite.decode(w)["kind"])
}

func (suite *HandlerTestSuite) TestRunBatch_Success() {
	result := domain.NewBatchResult(domain.BatchPost)
	result.Successes = []string{"e1"}
	result.Excluded = []string{"e9"}
	result.AddFailure("e2", fmt.Errorf("%w: entry e2 changed", apperrors.ErrConcurrentModification))
	result.Finalize()

	suite.batches.On("RunBatch", mock.Anything, testWorkplaceID,
		dto.BatchRequest{Operation: "post", EntryIDs: []string{"e1", "e2", "e9"}}, testUserID).
		Return(result, nil).Once()

	w := suite.do(http.MethodPost, entriesPath("/batch"), map[string]any{
		"operation": "post",
		"entryIDs":  []string{"e1", "e2", "e9"},
	})

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	resp := suite.decode(w)
	summary := resp["summary"].(map[string]any)
	suite.EqualValues(2, summary["total"])
	suite.EqualValues(1, summary["successful"])
	suite.EqualValues(1, summary["failed"])
	suite.EqualValues(1, summary["excluded"])
	failures := resp["failures"].([]any)
	suite.Require().Len(failures, 1)
	suite.Equal("CONCURRENT_MODIFICATION", failures[0].(map[string]any)["errorKind"])
}

func (suite *HandlerTestSuite) TestRunBatch_InvalidRequest() {
	cases := map[string]map[string]any{
		"unknown operation": {"operation": "delete", "entryIDs": []string{"e1"}},
		"no entries":        {"operation": "post", "entryIDs": []string{}},
		"blank entry id":    {"operation": "post", "entryIDs": []string{""}},
	}
	for name, body := range cases {
		suite.Run(name, func() {
			w := suite.do(http.MethodPost, entriesPath("/batch"), body)
			suite.Equal(http.StatusBadRequest, w.Code)
		})
	}
	suite.batches.AssertNotCalled(suite.T(), "RunBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestRunBatch_TooLarge() {
	suite.batches.On("RunBatch", mock.Anything, testWorkplaceID, mock.Anything, testUserID).
		Return(nil, fmt.Errorf("%w: batch of 600 entries exceeds the limit of 500", apperrors.ErrValidationFailed)).Once()

	w := suite.do(http.MethodPost, entriesPath("/batch"), map[string]any{"operation": "approve", "entryIDs": []string{"e1"}})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("VALIDATION_FAILED", suite.decode(w)["kind"])
}

// importRequest builds a multipart upload carrying content in the "file" field.
func (suite *HandlerTestSuite) importRequest(content string, fields map[string]string) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != "" {
		part, err := mw.CreateFormFile("file", "entries.csv")
		suite.Require().NoError(err)
		_, err = part.Write([]byte(content))
		suite.Require().NoError(err)
	}
	for k, v := range fields {
		suite.Require().NoError(mw.WriteField(k, v))
	}
	suite.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, entriesPath("/import"), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+suite.defaultToken)
	return req
}

func (suite *HandlerTestSuite) TestRunImport_Success() {
	result := domain.NewBatchResult(domain.BatchImport)
	result.Successes = []string{"e10"}
	result.Summary.EntriesCreated = 1
	result.Finalize()
	suite.batches.On("RunImport", mock.Anything, testWorkplaceID, importCSV,
		dto.ImportOptions{PostImmediately: true}, testUserID).Return(result, nil).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.importRequest(importCSV, map[string]string{"postImmediately": "true"}))

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	resp := suite.decode(w)
	suite.Equal("importFromRows", resp["operation"])
	suite.EqualValues(1, resp["summary"].(map[string]any)["entriesCreated"])
}

func (suite *HandlerTestSuite) TestRunImport_MissingFile() {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.importRequest("", map[string]string{"postImmediately": "false"}))

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("A CSV file must be uploaded in the 'file' field", suite.decode(w)["error"])
}

func (suite *HandlerTestSuite) TestRunImport_FileRejected() {
	suite.batches.On("RunImport", mock.Anything, testWorkplaceID, "garbage\n", dto.ImportOptions{}, testUserID).
		Return(nil, fmt.Errorf("%w: missing required column account_id", apperrors.ErrValidationFailed)).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.importRequest("garbage\n", nil))

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Contains(suite.decode(w)["error"], "account_id")
}

func (suite *HandlerTestSuite) TestHealth() {
	cfg := &config.Config{JWTSecret: suite.jwtSecret, IsProduction: true}
	container := &portssvc.ServiceContainer{
		JournalEntry: suite.entries,
		Approval:     suite.approvals,
		Reversal:     suite.reversals,
		Batch:        suite.batches,
	}

	suite.Run("no check", func() {
		w := httptest.NewRecorder()
		suite.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		suite.Equal(http.StatusOK, w.Code)
		suite.Equal("OK", w.Body.String())
	})

	suite.Run("failing check", func() {
		r := gin.New()
		handlers.RegisterRoutes(r, cfg, container, func(ctx context.Context) error {
			return errors.New("database unreachable")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		suite.Equal(http.StatusServiceUnavailable, w.Code)
		suite.Equal("Unavailable", w.Body.String())
	})
}
