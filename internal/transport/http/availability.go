package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/app"
	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type CalendarProvider interface {
	Calendar(ctx context.Context, orgID, variantID string, from, to time.Time) ([]domain.CalendarEntry, error)
	Summary(ctx context.Context, orgID, variantID string, from, to time.Time) (domain.AvailabilitySummary, error)
}

type BookingValidator interface {
	ValidateBooking(ctx context.Context, orgID string, items []app.BookingItemInput) (app.ValidationResult, error)
}

// HandleCalendar returns the handler for GET /availability/calendar.
func HandleCalendar(svc CalendarProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, variantID, from, to, ok := availabilityParams(w, r)
		if !ok {
			return
		}

		entries, err := svc.Calendar(r.Context(), orgID, variantID, from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := calendarResponse{ProductVariantID: variantID}
		for _, entry := range entries {
			resp.Days = append(resp.Days, newCalendarEntryResponse(entry))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleSummary returns the handler for GET /availability/summary.
func HandleSummary(svc CalendarProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, variantID, from, to, ok := availabilityParams(w, r)
		if !ok {
			return
		}

		summary, err := svc.Summary(r.Context(), orgID, variantID, from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summaryResponse{
			ProductVariantID: variantID,
			From:             summary.From.Format(dateLayout),
			To:               summary.To.Format(dateLayout),
			Days:             summary.Days,
			AvailableDays:    summary.AvailableDays,
			LowInventoryDays: summary.LowInventoryDays,
			SoldOutDays:      summary.SoldOutDays,
			StopSellDays:     summary.StopSellDays,
			BlackoutDays:     summary.BlackoutDays,
			TotalQuantity:    summary.TotalQuantity,
			TotalBooked:      summary.TotalBooked,
			TotalAvailable:   summary.TotalAvailable,
			AverageMargin:    summary.AverageMargin,
			Currency:         summary.Currency,
		})
	}
}

// HandleValidateBooking returns the handler for POST /bookings/validate: a
// dry-run preview with no side effects.
func HandleValidateBooking(svc BookingValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		orgID, ok := orgIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeOrgRequired, "missing "+orgHeader+" header")
			return
		}

		var req validateBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		items, err := toItemInputs(req.Items)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		result, err := svc.ValidateBooking(r.Context(), orgID, items)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := validateBookingResponse{Valid: result.Valid}
		for _, issue := range result.Errors {
			resp.Errors = append(resp.Errors, issueResponse(issue))
		}
		for _, issue := range result.Warnings {
			resp.Warnings = append(resp.Warnings, issueResponse(issue))
		}
		for _, sel := range result.Selections {
			resp.Selections = append(resp.Selections, selectionResponse{
				SupplierID:   sel.SupplierID,
				SupplierName: sel.SupplierName,
				UnitCost:     sel.UnitCost,
				SellingPrice: sel.SellingPrice,
				Margin:       sel.Margin,
				Currency:     sel.Currency,
				Available:    sel.Available,
				Priority:     sel.Priority,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityParams(w http.ResponseWriter, r *http.Request) (orgID, variantID string, from, to time.Time, ok bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	orgID, hasOrg := orgIDFromRequest(r)
	if !hasOrg {
		writeError(w, http.StatusBadRequest, codeOrgRequired, "missing "+orgHeader+" header")
		return
	}

	q := r.URL.Query()
	variantID = q.Get("variant_id")
	if variantID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidID, "variant_id is required")
		return
	}

	var err error
	from, err = time.Parse(dateLayout, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, "start must be YYYY-MM-DD")
		return
	}
	to, err = time.Parse(dateLayout, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, "end must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, "end must not precede start")
		return
	}
	ok = true
	return
}

type recommendedSupplierResponse struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Priority     int             `json:"priority"`
	Available    int             `json:"available"`
}

type calendarEntryResponse struct {
	Date                string                       `json:"date"`
	Status              string                       `json:"status"`
	TotalQuantity       int                          `json:"total_quantity"`
	TotalBooked         int                          `json:"total_booked"`
	TotalAvailable      int                          `json:"total_available"`
	RecommendedSupplier *recommendedSupplierResponse `json:"recommended_supplier,omitempty"`
}

func newCalendarEntryResponse(entry domain.CalendarEntry) calendarEntryResponse {
	resp := calendarEntryResponse{
		Date:           entry.Date.Format(dateLayout),
		Status:         string(entry.Status),
		TotalQuantity:  entry.TotalQuantity,
		TotalBooked:    entry.TotalBooked,
		TotalAvailable: entry.TotalAvailable,
	}
	if rs := entry.RecommendedSupplier; rs != nil {
		resp.RecommendedSupplier = &recommendedSupplierResponse{
			SupplierID:   rs.SupplierID,
			SupplierName: rs.SupplierName,
			UnitCost:     rs.UnitCost,
			Priority:     rs.Priority,
			Available:    rs.Available,
		}
	}
	return resp
}

type calendarResponse struct {
	ProductVariantID string                  `json:"product_variant_id"`
	Days             []calendarEntryResponse `json:"days"`
}

type summaryResponse struct {
	ProductVariantID string          `json:"product_variant_id"`
	From             string          `json:"from"`
	To               string          `json:"to"`
	Days             int             `json:"days"`
	AvailableDays    int             `json:"available_days"`
	LowInventoryDays int             `json:"low_inventory_days"`
	SoldOutDays      int             `json:"sold_out_days"`
	StopSellDays     int             `json:"stop_sell_days"`
	BlackoutDays     int             `json:"blackout_days"`
	TotalQuantity    int             `json:"total_quantity"`
	TotalBooked      int             `json:"total_booked"`
	TotalAvailable   int             `json:"total_available"`
	AverageMargin    decimal.Decimal `json:"average_margin"`
	Currency         string          `json:"currency,omitempty"`
}

type validateBookingRequest struct {
	Items []bookingItemRequest `json:"items"`
}

type issueJSON struct {
	ItemIndex int    `json:"item_index"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func issueResponse(issue app.ValidationIssue) issueJSON {
	return issueJSON(issue)
}

type selectionResponse struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Margin       decimal.Decimal `json:"margin"`
	Currency     string          `json:"currency"`
	Available    int             `json:"available"`
	Priority     int             `json:"priority"`
}

type validateBookingResponse struct {
	Valid      bool                `json:"valid"`
	Errors     []issueJSON         `json:"errors"`
	Warnings   []issueJSON         `json:"warnings"`
	Selections []selectionResponse `json:"selections"`
}
