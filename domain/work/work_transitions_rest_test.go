package work_test

import (
	"bytes"
	"context"
	"flowtrack/bizerror"
	"flowtrack/domain"
	"flowtrack/domain/work"
	"flowtrack/testinfra"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestQueryAvailableTransitionsRestAPI(t *testing.T) {
	RegisterTestingT(t)
	router := buildRouter()

	t.Run("should list legal actions of an item", func(t *testing.T) {
		work.AvailableTransitionsFunc = func(ctx context.Context, itemID types.ID) (*work.TransitionOptions, error) {
			Expect(itemID).To(Equal(types.ID(10)))
			return &work.TransitionOptions{WorkItemID: 10, CurrentState: "DRAFT",
				Transitions: []work.TransitionOption{
					{Action: "SUBMIT", ToState: "PENDING_REVIEW", TargetOwnerStrategy: domain.OwnerToSpecificUser,
						RequiredFields: domain.FieldList{"priority", "target_owner_id"}},
				}}, nil
		}
		defer func() { work.AvailableTransitionsFunc = work.AvailableTransitions }()

		req := httptest.NewRequest(http.MethodGet, work.PathWorkItems+"/10/transitions", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"workItemId":"10","currentState":"DRAFT","transitions":[
			{"action":"SUBMIT","toState":"PENDING_REVIEW","targetOwnerStrategy":"TO_SPECIFIC_USER",
			"requiredFields":["priority","target_owner_id"]}]}`))
	})
}

func TestExecuteTransitionRestAPI(t *testing.T) {
	RegisterTestingT(t)
	router := buildRouter()

	t.Run("should execute the transition and answer 201", func(t *testing.T) {
		var captured work.TransitionRequest
		work.ExecuteTransitionFunc = func(ctx context.Context, itemID types.ID,
			req *work.TransitionRequest) (*work.TransitionResult, error) {
			Expect(itemID).To(Equal(types.ID(10)))
			captured = *req
			return &work.TransitionResult{FromState: "DRAFT", ToState: "PENDING_REVIEW",
				Action: req.Action, NewOwnerID: 4,
				WorkItem: domain.WorkItem{ID: 10, TypeCode: "REQUIREMENT", Title: "login page",
					CurrentState: "PENDING_REVIEW", CurrentOwnerID: 4, CreatorID: 1, Version: 1}}, nil
		}
		defer func() { work.ExecuteTransitionFunc = work.ExecuteTransition }()

		payload := `{"action":"SUBMIT","operatorId":"1","formData":{"priority":"HIGH","target_owner_id":"4"}}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/transitions", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(captured.Action).To(Equal("SUBMIT"))
		Expect(captured.OperatorID).To(Equal(types.ID(1)))
		Expect(captured.FormData).To(Equal(domain.FormData{"priority": "HIGH", "target_owner_id": "4"}))
		Expect(body).To(ContainSubstring(`"fromState":"DRAFT"`))
		Expect(body).To(ContainSubstring(`"toState":"PENDING_REVIEW"`))
		Expect(body).To(ContainSubstring(`"newOwnerId":"4"`))
	})

	t.Run("should answer 400 when the request misses action or operator", func(t *testing.T) {
		payload := `{"formData":{}}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/transitions", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring(`"code":"common.bad_param"`))
	})

	t.Run("should answer 409 when retries are exhausted", func(t *testing.T) {
		work.ExecuteTransitionFunc = func(ctx context.Context, itemID types.ID,
			req *work.TransitionRequest) (*work.TransitionResult, error) {
			return nil, &bizerror.ErrConflict{Attempts: 3}
		}
		defer func() { work.ExecuteTransitionFunc = work.ExecuteTransition }()

		payload := `{"action":"SUBMIT","operatorId":"1"}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/transitions", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body).To(MatchJSON(`{"code":"common.conflict",
			"message":"lost race against a concurrent update, retries exhausted","data":{"attempts":3}}`))
	})

	t.Run("should answer 400 for illegal actions", func(t *testing.T) {
		work.ExecuteTransitionFunc = func(ctx context.Context, itemID types.ID,
			req *work.TransitionRequest) (*work.TransitionResult, error) {
			return nil, &bizerror.ErrInvalidTransition{State: "DRAFT", Action: "APPROVE"}
		}
		defer func() { work.ExecuteTransitionFunc = work.ExecuteTransition }()

		payload := `{"action":"APPROVE","operatorId":"1"}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/transitions", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"workflow.invalid_transition",
			"message":"state 'DRAFT' does not accept action 'APPROVE'",
			"data":{"state":"DRAFT","action":"APPROVE"}}`))
	})
}

func TestReassignWorkItemRestAPI(t *testing.T) {
	RegisterTestingT(t)
	router := buildRouter()

	t.Run("should reassign and answer the updated item", func(t *testing.T) {
		var captured work.ReassignRequest
		work.ReassignWorkItemFunc = func(ctx context.Context, itemID types.ID,
			req *work.ReassignRequest) (*domain.WorkItem, error) {
			Expect(itemID).To(Equal(types.ID(10)))
			captured = *req
			return &domain.WorkItem{ID: 10, TypeCode: "REQUIREMENT", Title: "login page",
				CurrentState: "DRAFT", CurrentOwnerID: req.TargetOwnerID, CreatorID: 1, Version: 1}, nil
		}
		defer func() { work.ReassignWorkItemFunc = work.ReassignWorkItem }()

		payload := `{"operatorId":"1","targetOwnerId":"2","remark":"bob takes over"}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/reassign", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(captured).To(Equal(work.ReassignRequest{OperatorID: 1, TargetOwnerID: 2, Remark: "bob takes over"}))
		Expect(body).To(ContainSubstring(`"currentOwnerId":"2"`))
	})

	t.Run("should answer 400 for items in terminal states", func(t *testing.T) {
		work.ReassignWorkItemFunc = func(ctx context.Context, itemID types.ID,
			req *work.ReassignRequest) (*domain.WorkItem, error) {
			return nil, &bizerror.ErrTerminalState{State: "RELEASED"}
		}
		defer func() { work.ReassignWorkItemFunc = work.ReassignWorkItem }()

		payload := `{"operatorId":"1","targetOwnerId":"2"}`
		req := httptest.NewRequest(http.MethodPost, work.PathWorkItems+"/10/reassign", bytes.NewBufferString(payload))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"workflow.terminal_state",
			"message":"state 'RELEASED' is terminal","data":{"state":"RELEASED"}}`))
	})
}
