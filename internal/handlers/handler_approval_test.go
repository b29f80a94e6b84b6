package handlers_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/SscSPs/journal_ledger/internal/dto"
)

func approvalsPath(suffix string) string {
	return "/api/v1/workplaces/" + testWorkplaceID + "/approvals" + suffix
}

func pendingApproval(id, approver string) domain.Approval {
	return domain.Approval{
		ApprovalID:  id,
		EntryID:     "e1",
		RoundID:     "r1",
		Status:      domain.ApprovalPending,
		RequestedBy: testUserID,
		Approver:    approver,
		RequestedAt: time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
	}
}

func (suite *HandlerTestSuite) TestRequestApproval_Created() {
	req := dto.RequestApprovalRequest{ApproverIDs: []string{"bob", "carol"}, Comments: "please review"}
	suite.approvals.On("RouteForApproval", mock.Anything, testWorkplaceID, "e1", req, testUserID).
		Return([]domain.Approval{pendingApproval("a1", "bob"), pendingApproval("a2", "carol")}, nil).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/request-approval"), req)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	var body []map[string]any
	suite.Require().NoError(decodeInto(w, &body))
	suite.Len(body, 2)
	suite.Equal("PENDING", body[0]["status"])
	suite.Equal("carol", body[1]["approver"])
}

func (suite *HandlerTestSuite) TestRequestApproval_NoApprovers() {
	suite.approvals.On("RouteForApproval", mock.Anything, testWorkplaceID, "e1", mock.Anything, testUserID).
		Return(nil, apperrors.ErrNoApproversSpecified).Once()

	w := suite.do(http.MethodPost, entriesPath("/e1/request-approval"), map[string]any{"approverIDs": []string{}})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("NO_APPROVERS_SPECIFIED", suite.decode(w)["kind"])
}

func (suite *HandlerTestSuite) TestListApprovalHistory() {
	suite.approvals.On("ListApprovalHistory", mock.Anything, testWorkplaceID, "e1", testUserID).
		Return([]domain.Approval{pendingApproval("a1", "bob")}, nil).Once()

	w := suite.do(http.MethodGet, entriesPath("/e1/approvals"), nil)

	suite.Equal(http.StatusOK, w.Code)
	var body []map[string]any
	suite.Require().NoError(decodeInto(w, &body))
	suite.Require().Len(body, 1)
	suite.Equal("a1", body[0]["approvalID"])
}

func (suite *HandlerTestSuite) TestListPending() {
	suite.approvals.On("ListPendingForApprover", mock.Anything, testWorkplaceID, testUserID).
		Return([]domain.PendingApprovalView{{
			Approval:      pendingApproval("a1", testUserID),
			EntryID:       "e1",
			Reference:     "JE-e1",
			AbsoluteTotal: "100",
		}}, nil).Once()

	w := suite.do(http.MethodGet, approvalsPath("/pending"), nil)

	suite.Equal(http.StatusOK, w.Code)
	var body []map[string]any
	suite.Require().NoError(decodeInto(w, &body))
	suite.Require().Len(body, 1)
	suite.Equal("JE-e1", body[0]["reference"])
}

func (suite *HandlerTestSuite) TestResolve_Approved() {
	approved := pendingApproval("a1", testUserID)
	approved.Status = domain.ApprovalApproved
	resolved := &domain.ResolvedApproval{
		Approval:  approved,
		Entry:     sampleEntry("e1", domain.Posted),
		Cancelled: []string{"a2"},
	}
	suite.approvals.On("Resolve", mock.Anything, testWorkplaceID, "a1",
		dto.ResolveApprovalRequest{Outcome: domain.OutcomeApproved, Comments: "ok"}, testUserID).
		Return(resolved, nil).Once()

	w := suite.do(http.MethodPost, approvalsPath("/a1/resolve"), map[string]any{"outcome": "APPROVED", "comments": "ok"})

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	resp := suite.decode(w)
	suite.Equal("APPROVED", resp["approval"].(map[string]any)["status"])
	suite.Equal("POSTED", resp["entry"].(map[string]any)["status"])
	suite.Equal([]any{"a2"}, resp["cancelled"])
}

func (suite *HandlerTestSuite) TestResolve_InvalidOutcome() {
	cases := map[string]map[string]any{
		"unknown outcome": {"outcome": "MAYBE"},
		"missing outcome": {"comments": "hmm"},
	}
	for name, body := range cases {
		suite.Run(name, func() {
			w := suite.do(http.MethodPost, approvalsPath("/a1/resolve"), body)
			suite.Equal(http.StatusBadRequest, w.Code)
			suite.Contains(suite.decode(w)["error"], "Invalid request format")
		})
	}
	suite.approvals.AssertNotCalled(suite.T(), "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestResolve_AlreadyResolved() {
	suite.approvals.On("Resolve", mock.Anything, testWorkplaceID, "a1", mock.Anything, testUserID).
		Return(nil, fmt.Errorf("%w: approval a1 is CANCELLED", apperrors.ErrAlreadyResolved)).Once()

	w := suite.do(http.MethodPost, approvalsPath("/a1/resolve"), map[string]any{"outcome": "REJECTED"})

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("ALREADY_RESOLVED", suite.decode(w)["kind"])
}
