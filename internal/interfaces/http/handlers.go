package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

const callerKey = "caller_id"

// callerIdentity extracts the acting user from the X-User-ID header.
// Authentication itself is delegated to the gateway in front of this
// service; the engine only needs a trustworthy identity.
func callerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid X-User-ID header",
			})
			return
		}
		c.Set(callerKey, id)
	}
}

func caller(c *gin.Context) int64 {
	return c.GetInt64(callerKey)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService  service.ClaimService
	ruleService   service.RuleService
	reportService service.ReportService
	rates         RateLookup
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claimService service.ClaimService,
	ruleService service.RuleService,
	reportService service.ReportService,
	rates RateLookup,
	logger Logger,
) *Handlers {
	return &Handlers{
		claimService:  claimService,
		ruleService:   ruleService,
		reportService: reportService,
		rates:         rates,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitClaimRequest represents the claim submission payload
type SubmitClaimRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Currency    string  `json:"currency" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	ExpenseDate string  `json:"expense_date" binding:"required"`
}

// DecisionRequest represents an approve/reject payload
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	From     string `form:"from"`
	To       string `form:"to"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// statusFor maps service-layer failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrConflict),
		errors.Is(err, approval.ErrNotActionable),
		errors.Is(err, service.ErrNotWithdrawable):
		return http.StatusConflict
	case errors.Is(err, approval.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrNoCompanyPolicy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, approval.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitClaim handles POST /api/expenses
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid expense_date"})
		return
	}

	claim, err := h.claimService.Submit(c.Request.Context(), service.SubmitRequest{
		SubmitterID: caller(c),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// ListMyClaims handles GET /api/expenses
func (h *Handlers) ListMyClaims(c *gin.Context) {
	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	filter := port.ClaimFilter{
		Status:   req.Status,
		Category: req.Category,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if req.From != "" {
		from, err := parseDate(req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid from date"})
			return
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := parseDate(req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid to date"})
			return
		}
		filter.To = &to
	}

	claims, err := h.claimService.ListMine(c.Request.Context(), caller(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetClaim handles GET /api/expenses/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	claim, err := h.claimService.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// ListActionable handles GET /api/approvals
func (h *Handlers) ListActionable(c *gin.Context) {
	claims, err := h.claimService.ListActionable(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// ActOnClaim handles POST /api/expenses/:id/approve
func (h *Handlers) ActOnClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Act(c.Request.Context(), id, caller(c), req.Decision, req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// OverrideClaim handles POST /api/expenses/:id/override
func (h *Handlers) OverrideClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	claim, err := h.claimService.Override(c.Request.Context(), id, caller(c), req.Decision, req.Comment)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// WithdrawClaim handles DELETE /api/expenses/:id
func (h *Handlers) WithdrawClaim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.claimService.Withdraw(c.Request.Context(), id, caller(c)); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetRate handles GET /api/rates/:currency
func (h *Handlers) GetRate(c *gin.Context) {
	from := c.Param("currency")
	to := c.DefaultQuery("to", "USD")

	rate, err := h.rates.Rate(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"from": from,
		"to":   to,
		"rate": rate,
	}})
}

// CompanyStats handles GET /api/stats
func (h *Handlers) CompanyStats(c *gin.Context) {
	companyID, ok := queryCompanyID(c)
	if !ok {
		return
	}

	stats, err := h.claimService.Stats(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ApprovedReport handles GET /api/reports/approved
func (h *Handlers) ApprovedReport(c *gin.Context) {
	companyID, ok := queryCompanyID(c)
	if !ok {
		return
	}

	from, err := parseDate(c.DefaultQuery("from", "1970-01-01"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid from date"})
		return
	}
	to, err := parseDate(c.DefaultQuery("to", time.Now().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid to date"})
		return
	}

	data, err := h.reportService.ApprovedClaims(c.Request.Context(), companyID, from, to.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("approved-claims-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// GetPolicy handles GET /api/companies/:id/policy
func (h *Handlers) GetPolicy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	policy, err := h.ruleService.GetPolicy(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: policy})
}

// UpdatePolicy handles PUT /api/companies/:id/policy
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var policy entity.CompanyPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	policy.ID = id

	if err := h.ruleService.UpdatePolicy(c.Request.Context(), &policy); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: policy})
}

// CreateRule handles POST /api/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var rule entity.ApprovalRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.ruleService.CreateRule(c.Request.Context(), &rule); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: rule})
}

// ListRules handles GET /api/rules
func (h *Handlers) ListRules(c *gin.Context) {
	companyID, ok := queryCompanyID(c)
	if !ok {
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rules})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryCompanyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("company_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "company_id is required"})
		return 0, false
	}
	return id, true
}

// parseDate accepts a date-only or RFC3339 timestamp value.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
