package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/custodix/recoveryd/internal/models"
)

// fakeRecoveryService implements RecoveryService with preconfigured results.
type fakeRecoveryService struct {
	request     *models.RecoveryRequest
	initiateErr error
	approveErr  error
	executeErr  error
	cancelErr   error
	checkInErr  error
	statusErr   error

	lastCaller      string
	lastUnreachable bool
}

func (f *fakeRecoveryService) Initiate(ctx context.Context, caller, accountID, newOwner string, ownerUnreachable bool) (*models.RecoveryRequest, error) {
	f.lastCaller = caller
	f.lastUnreachable = ownerUnreachable
	return f.request, f.initiateErr
}

func (f *fakeRecoveryService) Approve(ctx context.Context, caller, accountID, newOwner string) error {
	f.lastCaller = caller
	return f.approveErr
}

func (f *fakeRecoveryService) Execute(ctx context.Context, caller, accountID, newOwner string) error {
	f.lastCaller = caller
	return f.executeErr
}

func (f *fakeRecoveryService) Cancel(ctx context.Context, caller, accountID string) error {
	f.lastCaller = caller
	return f.cancelErr
}

func (f *fakeRecoveryService) CheckIn(ctx context.Context, caller, accountID string) error {
	f.lastCaller = caller
	return f.checkInErr
}

func (f *fakeRecoveryService) Status(ctx context.Context, accountID string) (*models.RecoveryRequest, error) {
	return f.request, f.statusErr
}

func TestRecoveryHandler_Initiate(t *testing.T) {
	live := &models.RecoveryRequest{
		ID:            "req-1",
		AccountID:     "acct-1",
		ProposedOwner: "0xnew",
		Initiator:     "0xg1",
		State:         models.RequestInitiated,
		CreatedAt:     time.Now(),
	}

	tests := []struct {
		name         string
		body         string
		service      *fakeRecoveryService
		expectedCode int
	}{
		{
			name:         "missing new owner",
			body:         `{}`,
			service:      &fakeRecoveryService{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "caller is not a guardian",
			body:         `{"new_owner":"0xnew"}`,
			service:      &fakeRecoveryService{initiateErr: models.ErrUnauthorized},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "a request is already live",
			body:         `{"new_owner":"0xnew"}`,
			service:      &fakeRecoveryService{initiateErr: models.ErrRecoveryAlreadyLive},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "success",
			body:         `{"new_owner":"0xnew","owner_unreachable":true}`,
			service:      &fakeRecoveryService{request: live},
			expectedCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := newHandlerRequest("POST", "/api/accounts/acct-1/recovery", "0xg1", "acct-1", tt.body)
			h := &RecoveryHandler{RecoveryService: tt.service}
			h.Initiate(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if tt.expectedCode == http.StatusCreated {
				if tt.service.lastCaller != "0xg1" {
					t.Errorf("expected caller from certificate, got %q", tt.service.lastCaller)
				}
				if !tt.service.lastUnreachable {
					t.Error("expected owner_unreachable to be forwarded")
				}
				var payload models.RecoveryRequest
				if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
					t.Fatalf("failed to decode JSON: %v", err)
				}
				if payload.ID != "req-1" {
					t.Errorf("expected request id 'req-1', got %q", payload.ID)
				}
			}
		})
	}
}

func TestRecoveryHandler_Execute(t *testing.T) {
	tests := []struct {
		name         string
		service      *fakeRecoveryService
		expectedCode int
	}{
		{
			name:         "timelock not elapsed",
			service:      &fakeRecoveryService{executeErr: models.ErrTimelockNotElapsed},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "threshold not met",
			service:      &fakeRecoveryService{executeErr: models.ErrThresholdNotMet},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "request expired",
			service:      &fakeRecoveryService{executeErr: models.ErrRequestExpired},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "no live request",
			service:      &fakeRecoveryService{executeErr: models.ErrRecoveryNotFound},
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "success",
			service:      &fakeRecoveryService{},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := newHandlerRequest("POST", "/api/accounts/acct-1/recovery/execute", "0xg1", "acct-1", `{"new_owner":"0xnew"}`)
			h := &RecoveryHandler{RecoveryService: tt.service}
			h.Execute(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestRecoveryHandler_CheckIn(t *testing.T) {
	tests := []struct {
		name         string
		service      *fakeRecoveryService
		expectedCode int
	}{
		{
			name:         "not the owner",
			service:      &fakeRecoveryService{checkInErr: models.ErrUnauthorized},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "success",
			service:      &fakeRecoveryService{},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := newHandlerRequest("POST", "/api/accounts/acct-1/checkin", "0xowner", "acct-1", "")
			h := &RecoveryHandler{RecoveryService: tt.service}
			h.CheckIn(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestRecoveryHandler_Status_NotFound(t *testing.T) {
	h := &RecoveryHandler{RecoveryService: &fakeRecoveryService{statusErr: models.ErrRecoveryNotFound}}
	rec := httptest.NewRecorder()
	req := newHandlerRequest("GET", "/api/accounts/acct-1/recovery", "0xowner", "acct-1", "")
	h.Status(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestFeeHandler_Collect(t *testing.T) {
	tests := []struct {
		name         string
		service      *fakeFeeService
		body         string
		expectedCode int
	}{
		{
			name:         "below minimum",
			service:      &fakeFeeService{err: models.ErrInsufficientFee},
			body:         `{"amount":1}`,
			expectedCode: http.StatusPaymentRequired,
		},
		{
			name: "success",
			service: &fakeFeeService{payment: &models.FeePayment{
				ID:        "pay-1",
				AccountID: "acct-1",
				Payer:     "0xg1",
				Amount:    5000,
			}},
			body:         `{"amount":5000}`,
			expectedCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := newHandlerRequest("POST", "/api/accounts/acct-1/fee", "0xg1", "acct-1", tt.body)
			h := &FeeHandler{FeeService: tt.service}
			h.Collect(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
		})
	}
}

func TestNotificationHandler_Request(t *testing.T) {
	h := &NotificationHandler{NotificationService: &fakeNotificationService{id: "3mJr7AoUXx2Wqd"}}
	rec := httptest.NewRecorder()
	req := newHandlerRequest("POST", "/api/accounts/acct-1/notifications", "0xg1", "acct-1", `{"message":"recovery initiated"}`)
	h.Request(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if payload["request_id"] != "3mJr7AoUXx2Wqd" {
		t.Errorf("expected issued request id, got %q", payload["request_id"])
	}
}

// fakeFeeService implements FeeService for testing.
type fakeFeeService struct {
	payment *models.FeePayment
	err     error
}

func (f *fakeFeeService) CollectFee(ctx context.Context, caller, accountID string, amount int64) (*models.FeePayment, error) {
	return f.payment, f.err
}

// fakeNotificationService implements NotificationService for testing.
type fakeNotificationService struct {
	id  string
	err error
}

func (f *fakeNotificationService) RequestNotification(ctx context.Context, caller, accountID, message string) (string, error) {
	return f.id, f.err
}
