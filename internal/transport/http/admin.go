package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielGPGT/tour-ops-engine/internal/app"
	"github.com/danielGPGT/tour-ops-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type Provisioner interface {
	ProvisionAllocations(ctx context.Context, in app.ProvisionAllocationsInput) ([]domain.AllocationRecord, error)
	CreatePool(ctx context.Context, in app.CreatePoolInput) (domain.InventoryPool, error)
}

// HandleProvisionAllocations returns the handler for POST /admin/allocations.
func HandleProvisionAllocations(svc Provisioner) http.HandlerFunc {
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

		var req provisionAllocationsRequest
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

		records, err := svc.ProvisionAllocations(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := provisionAllocationsResponse{Created: len(records)}
		for _, record := range records {
			resp.AllocationIDs = append(resp.AllocationIDs, record.ID)
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// HandleCreatePool returns the handler for POST /admin/pools.
func HandleCreatePool(svc Provisioner) http.HandlerFunc {
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

		var req createPoolRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		pool, err := svc.CreatePool(r.Context(), app.CreatePoolInput{
			OrgID:    orgID,
			Name:     req.Name,
			Quantity: req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createPoolResponse{
			ID:       pool.ID,
			Name:     pool.Name,
			Quantity: pool.Quantity,
		})
	}
}

type provisionAllocationsRequest struct {
	ProductVariantID string  `json:"product_variant_id"`
	SupplierID       string  `json:"supplier_id"`
	SupplierName     string  `json:"supplier_name"`
	From             string  `json:"from"`
	To               string  `json:"to"`
	Quantity         *int    `json:"quantity"`
	UnitCost         string  `json:"unit_cost"`
	Currency         string  `json:"currency"`
	AllocationType   string  `json:"allocation_type"`
	InventoryPoolID  *string `json:"inventory_pool_id"`
}

func (r provisionAllocationsRequest) toInput(orgID string) (app.ProvisionAllocationsInput, error) {
	from, err := time.Parse(dateLayout, r.From)
	if err != nil {
		return app.ProvisionAllocationsInput{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, r.To)
	if err != nil {
		return app.ProvisionAllocationsInput{}, errors.New("to must be YYYY-MM-DD")
	}

	unitCost := decimal.Zero
	if r.UnitCost != "" {
		unitCost, err = decimal.NewFromString(r.UnitCost)
		if err != nil {
			return app.ProvisionAllocationsInput{}, errors.New("unit_cost must be a decimal string")
		}
	}

	return app.ProvisionAllocationsInput{
		OrgID:            orgID,
		ProductVariantID: r.ProductVariantID,
		SupplierID:       r.SupplierID,
		SupplierName:     r.SupplierName,
		From:             from,
		To:               to,
		Quantity:         r.Quantity,
		UnitCost:         unitCost,
		Currency:         r.Currency,
		Type:             domain.AllocationType(r.AllocationType),
		InventoryPoolID:  r.InventoryPoolID,
	}, nil
}

type provisionAllocationsResponse struct {
	Created       int      `json:"created"`
	AllocationIDs []string `json:"allocation_ids"`
}

type createPoolRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type createPoolResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}
