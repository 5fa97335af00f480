package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/app"
	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// BookingCoordinator is the surface of the booking service the transport
// needs.
type BookingCoordinator interface {
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.CreateBookingResult, error)
	CancelBooking(ctx context.Context, orgID, bookingID, reason string) error
	GetBookingDetails(ctx context.Context, orgID, bookingID string) (app.BookingDetails, error)
}

const dateLayout = "2006-01-02"

// HandleCreateBooking returns the handler for POST /bookings.
func HandleCreateBooking(svc BookingCoordinator) http.HandlerFunc {
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

		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in, err := req.toInput(orgID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		result, err := svc.CreateBooking(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newBookingResponse(result))
	}
}

// HandleBookingByID routes GET /bookings/{id} and POST /bookings/{id}/cancel.
func HandleBookingByID(svc BookingCoordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := orgIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusBadRequest, codeOrgRequired, "missing "+orgHeader+" header")
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 2 && parts[0] == "bookings" && parts[1] != "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleGetBooking(w, r, svc, orgID, parts[1])
		case len(parts) == 3 && parts[0] == "bookings" && parts[1] != "" && parts[2] == "cancel":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleCancelBooking(w, r, svc, orgID, parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleGetBooking(w http.ResponseWriter, r *http.Request, svc BookingCoordinator, orgID, bookingID string) {
	details, err := svc.GetBookingDetails(r.Context(), orgID, bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingDetailsResponse(details))
}

func handleCancelBooking(w http.ResponseWriter, r *http.Request, svc BookingCoordinator, orgID, bookingID string) {
	var req cancelBookingRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
	}

	if err := svc.CancelBooking(r.Context(), orgID, bookingID, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelBookingResponse{BookingID: bookingID, Status: string(domain.BookingStatusCancelled)})
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrgRequired):
		writeError(w, http.StatusBadRequest, codeOrgRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
	case errors.Is(err, domain.ErrNoItems):
		writeError(w, http.StatusBadRequest, codeNoItems, err.Error())
	case errors.Is(err, domain.ErrNoMasterRate):
		writeError(w, http.StatusUnprocessableEntity, codeNoMasterRate, err.Error())
	case errors.Is(err, domain.ErrNoSupplierAvailable):
		writeError(w, http.StatusUnprocessableEntity, codeNoSupplierAvailable, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case errors.Is(err, domain.ErrTransactionConflict):
		writeError(w, http.StatusConflict, codeTransactionConflict, err.Error())
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, codeAlreadyCancelled, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type bookingItemRequest struct {
	ProductVariantID string `json:"product_variant_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	Quantity         int    `json:"quantity"`
	Adults           int    `json:"adults"`
	Children         int    `json:"children"`
}

type passengerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Lead      bool   `json:"lead"`
}

type createBookingRequest struct {
	Channel    string               `json:"channel"`
	Currency   string               `json:"currency"`
	Items      []bookingItemRequest `json:"items"`
	Passengers []passengerRequest   `json:"passengers"`
}

func (r createBookingRequest) toInput(orgID string) (app.CreateBookingInput, error) {
	items, err := toItemInputs(r.Items)
	if err != nil {
		return app.CreateBookingInput{}, err
	}

	in := app.CreateBookingInput{
		OrgID:    orgID,
		Channel:  r.Channel,
		Currency: r.Currency,
		Items:    items,
	}
	for _, p := range r.Passengers {
		in.Passengers = append(in.Passengers, app.PassengerInput(p))
	}
	return in, nil
}

func toItemInputs(items []bookingItemRequest) ([]app.BookingItemInput, error) {
	out := make([]app.BookingItemInput, 0, len(items))
	for _, item := range items {
		start, err := time.Parse(dateLayout, item.StartDate)
		if err != nil {
			return nil, errors.New("start_date must be YYYY-MM-DD")
		}
		var end time.Time
		if item.EndDate != "" {
			end, err = time.Parse(dateLayout, item.EndDate)
			if err != nil {
				return nil, errors.New("end_date must be YYYY-MM-DD")
			}
		}
		out = append(out, app.BookingItemInput{
			ProductVariantID: item.ProductVariantID,
			StartDate:        start,
			EndDate:          end,
			Quantity:         item.Quantity,
			Adults:           item.Adults,
			Children:         item.Children,
		})
	}
	return out, nil
}

type bookingItemResponse struct {
	ID               string          `json:"id"`
	ProductVariantID string          `json:"product_variant_id"`
	SupplierID       string          `json:"supplier_id"`
	SupplierName     string          `json:"supplier_name,omitempty"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	Quantity         int             `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Margin           decimal.Decimal `json:"margin"`
	State            string          `json:"state"`
}

type createBookingResponse struct {
	ID          string                `json:"id"`
	Reference   string                `json:"reference"`
	Status      string                `json:"status"`
	Currency    string                `json:"currency"`
	TotalCost   decimal.Decimal       `json:"total_cost"`
	TotalPrice  decimal.Decimal       `json:"total_price"`
	TotalMargin decimal.Decimal       `json:"total_margin"`
	Items       []bookingItemResponse `json:"items"`
}

func newBookingResponse(result app.CreateBookingResult) createBookingResponse {
	resp := createBookingResponse{
		ID:          result.Booking.ID,
		Reference:   result.Booking.Reference,
		Status:      string(result.Booking.Status),
		Currency:    result.Booking.Currency,
		TotalCost:   result.Booking.TotalCost,
		TotalPrice:  result.Booking.TotalPrice,
		TotalMargin: result.Booking.TotalMargin,
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, newItemResponse(item))
	}
	return resp
}

func newItemResponse(item domain.BookingItem) bookingItemResponse {
	return bookingItemResponse{
		ID:               item.ID,
		ProductVariantID: item.ProductVariantID,
		SupplierID:       item.SupplierID,
		SupplierName:     item.SupplierName,
		StartDate:        item.StartDate.Format(dateLayout),
		EndDate:          item.EndDate.Format(dateLayout),
		Quantity:         item.Quantity,
		UnitCost:         item.UnitCost,
		UnitPrice:        item.UnitPrice,
		Margin:           item.Margin,
		State:            string(item.State),
	}
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type cancelBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type passengerResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Lead      bool   `json:"lead"`
}

type supplierBreakdownResponse struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	ItemCount    int             `json:"item_count"`
	Quantity     int             `json:"quantity"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	TotalMargin  decimal.Decimal `json:"total_margin"`
}

type bookingDetailsResponse struct {
	ID                string                      `json:"id"`
	Reference         string                      `json:"reference"`
	Channel           string                      `json:"channel,omitempty"`
	Currency          string                      `json:"currency"`
	Status            string                      `json:"status"`
	TotalCost         decimal.Decimal             `json:"total_cost"`
	TotalPrice        decimal.Decimal             `json:"total_price"`
	TotalMargin       decimal.Decimal             `json:"total_margin"`
	CancelReason      string                      `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	Items             []bookingItemResponse       `json:"items"`
	Passengers        []passengerResponse         `json:"passengers"`
	SupplierBreakdown []supplierBreakdownResponse `json:"supplier_breakdown"`
}

func newBookingDetailsResponse(details app.BookingDetails) bookingDetailsResponse {
	resp := bookingDetailsResponse{
		ID:           details.Booking.ID,
		Reference:    details.Booking.Reference,
		Channel:      details.Booking.Channel,
		Currency:     details.Booking.Currency,
		Status:       string(details.Booking.Status),
		TotalCost:    details.Booking.TotalCost,
		TotalPrice:   details.Booking.TotalPrice,
		TotalMargin:  details.Booking.TotalMargin,
		CancelReason: details.Booking.CancelReason,
		CreatedAt:    details.Booking.CreatedAt,
	}
	for _, item := range details.Items {
		resp.Items = append(resp.Items, newItemResponse(item))
	}
	for _, p := range details.Passengers {
		resp.Passengers = append(resp.Passengers, passengerResponse{
			ID:        p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
			Phone:     p.Phone,
			Lead:      p.Lead,
		})
	}
	for _, b := range details.SupplierBreakdown {
		resp.SupplierBreakdown = append(resp.SupplierBreakdown, supplierBreakdownResponse(b))
	}
	return resp
}
