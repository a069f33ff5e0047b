package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

type mockClaimService struct {
	submitFn         func(ctx context.Context, req service.SubmitRequest) (*entity.Claim, error)
	getFn            func(ctx context.Context, claimID int64) (*entity.Claim, error)
	listMineFn       func(ctx context.Context, submitterID int64, filter port.ClaimFilter) ([]*entity.Claim, error)
	listActionableFn func(ctx context.Context, approverID int64) ([]*entity.Claim, error)
	actFn            func(ctx context.Context, claimID, approverID int64, decision, comment string) (*entity.Claim, error)
	overrideFn       func(ctx context.Context, claimID, adminID int64, decision, reason string) (*entity.Claim, error)
	withdrawFn       func(ctx context.Context, claimID, submitterID int64) error
	statsFn          func(ctx context.Context, companyID int64) (*service.CompanyStats, error)
}

func (m *mockClaimService) Submit(ctx context.Context, req service.SubmitRequest) (*entity.Claim, error) {
	return m.submitFn(ctx, req)
}
func (m *mockClaimService) Get(ctx context.Context, claimID int64) (*entity.Claim, error) {
	return m.getFn(ctx, claimID)
}
func (m *mockClaimService) ListMine(ctx context.Context, submitterID int64, filter port.ClaimFilter) ([]*entity.Claim, error) {
	return m.listMineFn(ctx, submitterID, filter)
}
func (m *mockClaimService) ListActionable(ctx context.Context, approverID int64) ([]*entity.Claim, error) {
	return m.listActionableFn(ctx, approverID)
}
func (m *mockClaimService) Act(ctx context.Context, claimID, approverID int64, decision, comment string) (*entity.Claim, error) {
	return m.actFn(ctx, claimID, approverID, decision, comment)
}
func (m *mockClaimService) Override(ctx context.Context, claimID, adminID int64, decision, reason string) (*entity.Claim, error) {
	return m.overrideFn(ctx, claimID, adminID, decision, reason)
}
func (m *mockClaimService) Withdraw(ctx context.Context, claimID, submitterID int64) error {
	return m.withdrawFn(ctx, claimID, submitterID)
}
func (m *mockClaimService) Stats(ctx context.Context, companyID int64) (*service.CompanyStats, error) {
	return m.statsFn(ctx, companyID)
}

type mockRuleService struct{}

func (m *mockRuleService) GetPolicy(ctx context.Context, companyID int64) (*entity.CompanyPolicy, error) {
	return &entity.CompanyPolicy{ID: companyID, BaseCurrency: "USD"}, nil
}
func (m *mockRuleService) UpdatePolicy(ctx context.Context, policy *entity.CompanyPolicy) error {
	return policy.Validate()
}
func (m *mockRuleService) CreateRule(ctx context.Context, rule *entity.ApprovalRule) error {
	return nil
}
func (m *mockRuleService) ListRules(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	return nil, nil
}

type mockReportService struct{}

func (m *mockReportService) ApprovedClaims(ctx context.Context, companyID int64, from, to time.Time) ([]byte, error) {
	return []byte("xlsx-bytes"), nil
}

type mockRates struct{}

func (m *mockRates) Rate(ctx context.Context, from, to string) (float64, error) {
	return 1.25, nil
}

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(claims service.ClaimService) *Server {
	return NewServer(DefaultServerConfig(), claims, &mockRuleService{}, &mockReportService{}, &mockRates{}, testLogger{})
}

func doRequest(srv *Server, method, path, body string, asUser string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestSubmitClaim(t *testing.T) {
	var captured service.SubmitRequest
	srv := newTestServer(&mockClaimService{
		submitFn: func(_ context.Context, req service.SubmitRequest) (*entity.Claim, error) {
			captured = req
			return &entity.Claim{ID: 1, Ref: "ref-1", Status: entity.StatusPending}, nil
		},
	})

	body := `{"amount":120.5,"currency":"eur","category":"travel","description":"taxi","expense_date":"2026-08-30"}`
	w := doRequest(srv, http.MethodPost, "/api/expenses", body, "7")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if captured.SubmitterID != 7 {
		t.Errorf("submitter = %d, want 7 from header", captured.SubmitterID)
	}
	if captured.Amount != 120.5 || captured.Category != "travel" {
		t.Errorf("captured request %+v", captured)
	}
}

func TestSubmitClaimRequiresIdentity(t *testing.T) {
	srv := newTestServer(&mockClaimService{})

	w := doRequest(srv, http.MethodPost, "/api/expenses", `{"amount":1}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrClaimNotFound, http.StatusNotFound},
		{"conflict", port.ErrConflict, http.StatusConflict},
		{"not actionable", approval.ErrNotActionable, http.StatusConflict},
		{"not authorized", approval.ErrNotAuthorized, http.StatusForbidden},
		{"no policy", approval.ErrNoCompanyPolicy, http.StatusUnprocessableEntity},
		{"bad decision", approval.ErrInvalidDecision, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockClaimService{
				actFn: func(_ context.Context, _, _ int64, _, _ string) (*entity.Claim, error) {
					return nil, tt.err
				},
			})

			w := doRequest(srv, http.MethodPost, "/api/expenses/5/approve", `{"decision":"approved"}`, "2")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWithdrawClaim(t *testing.T) {
	srv := newTestServer(&mockClaimService{
		withdrawFn: func(_ context.Context, claimID, submitterID int64) error {
			if claimID != 9 || submitterID != 3 {
				t.Errorf("withdraw(%d, %d)", claimID, submitterID)
			}
			return nil
		},
	})

	w := doRequest(srv, http.MethodDelete, "/api/expenses/9", "", "3")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestWithdrawNonPending(t *testing.T) {
	srv := newTestServer(&mockClaimService{
		withdrawFn: func(_ context.Context, _, _ int64) error {
			return service.ErrNotWithdrawable
		},
	})

	w := doRequest(srv, http.MethodDelete, "/api/expenses/9", "", "3")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetRate(t *testing.T) {
	srv := newTestServer(&mockClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/rates/EUR?to=GBP", "", "1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			From string  `json:"from"`
			To   string  `json:"to"`
			Rate float64 `json:"rate"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.From != "EUR" || resp.Data.To != "GBP" || resp.Data.Rate != 1.25 {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestApprovedReport(t *testing.T) {
	srv := newTestServer(&mockClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/reports/approved?company_id=1&from=2026-01-01&to=2026-06-30", "", "1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestBadPathID(t *testing.T) {
	srv := newTestServer(&mockClaimService{})

	w := doRequest(srv, http.MethodGet, "/api/expenses/abc", "", "1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
