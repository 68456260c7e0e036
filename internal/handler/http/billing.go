package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type BillingHandler interface {
	// Preview
	Calculate(w http.ResponseWriter, r *http.Request)

	// Commit
	Finalize(w http.ResponseWriter, r *http.Request)
	FinalizeSummaries(w http.ResponseWriter, r *http.Request)

	// Records
	GetRecord(w http.ResponseWriter, r *http.Request)
	ListRecords(w http.ResponseWriter, r *http.Request)
}

type billingHandlerImpl struct {
	billingService billing.BillingService
}

func NewBillingHandler(billingService billing.BillingService) BillingHandler {
	return &billingHandlerImpl{billingService: billingService}
}

// ========== PREVIEW ==========

func (h *billingHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := billing.CalculateBillingRequest{
		StartDate:   query.Get("start_date"),
		EndDate:     query.Get("end_date"),
		EmployeeIDs: validator.SplitCSV(query.Get("employee_ids")),
	}

	summaries, err := h.billingService.Calculate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]billing.PeriodBillingSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, s.ToResponse())
	}
	response.Success(w, result)
}

// ========== COMMIT ==========

func (h *billingHandlerImpl) Finalize(w http.ResponseWriter, r *http.Request) {
	var req billing.FinalizeBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.billingService.Finalize(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Billing finalized", result)
}

func (h *billingHandlerImpl) FinalizeSummaries(w http.ResponseWriter, r *http.Request) {
	var req billing.FinalizeSummariesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.billingService.FinalizeSummaries(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Billing finalized", result)
}

// ========== RECORDS ==========

func (h *billingHandlerImpl) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Record ID is required", nil)
		return
	}

	result, err := h.billingService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *billingHandlerImpl) ListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := billing.ListBillingRecordsRequest{
		EmployeeID: query.Get("employee_id"),
		StartDate:  query.Get("start_date"),
		EndDate:    query.Get("end_date"),
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		req.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		req.Limit = limit
	}

	result, err := h.billingService.ListRecords(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}
