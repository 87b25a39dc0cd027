package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentdesk/internal/core"
)

// ExpiryResult counts the records an expiry run transitioned.
type ExpiryResult struct {
	ContractsCompleted int `json:"contractsCompleted"`
	TenantsDeactivated int `json:"tenantsDeactivated"`
}

// ExpiryProcessor closes contracts and leases whose end date has passed.
type ExpiryProcessor struct {
	service *Service
}

// NewExpiryProcessor creates a new expiry processor
func NewExpiryProcessor(service *Service) *ExpiryProcessor {
	return &ExpiryProcessor{service: service}
}

// ProcessExpired marks active contracts ending before now as completed and
// active tenants whose lease ended before now as inactive. Each transition
// goes through the regular update path so it is mirrored like any edit.
func (p *ExpiryProcessor) ProcessExpired(ctx context.Context, now time.Time) (ExpiryResult, error) {
	var res ExpiryResult
	if p.service == nil {
		return res, fmt.Errorf("processor not properly initialized")
	}
	today := core.DateOf(now)

	contracts, err := p.service.storage.ListContractsByStatus(ctx, core.ContractActive)
	if err != nil {
		return res, fmt.Errorf("failed to get active contracts: %w", err)
	}
	slog.InfoContext(ctx, "Processing expired records",
		"active_contracts", len(contracts),
		"processing_date", today.String())

	for _, c := range contracts {
		if !isPast(c.EndDate, today) {
			continue
		}
		c.Status = core.ContractCompleted
		if err := p.service.saveContract(ctx, &c); err != nil {
			slog.ErrorContext(ctx, "Failed to complete expired contract",
				"contract_id", c.ID,
				"end_date", c.EndDate.String(),
				"error", err)
			continue
		}
		res.ContractsCompleted++
		slog.InfoContext(ctx, "Completed expired contract",
			"contract_id", c.ID,
			"end_date", c.EndDate.String())
	}

	tenants, err := p.service.storage.ListTenants(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to get tenants: %w", err)
	}
	for _, t := range tenants {
		if t.Status != core.TenantActive || !isPast(t.ExpirationDate, today) {
			continue
		}
		t.Status = core.TenantInactive
		if _, err := p.service.saveTenant(ctx, t, t.Apartment.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to deactivate tenant",
				"tenant_id", t.ID,
				"error", err)
			continue
		}
		res.TenantsDeactivated++
		slog.InfoContext(ctx, "Deactivated tenant with expired lease",
			"tenant_id", t.ID,
			"expiration_date", t.ExpirationDate.String())
	}

	slog.InfoContext(ctx, "Expiry processing complete",
		"contracts_completed", res.ContractsCompleted,
		"tenants_deactivated", res.TenantsDeactivated)
	return res, nil
}

// isPast reports whether d is set and strictly before today.
func isPast(d, today core.Date) bool {
	return !d.IsZero() && d.Before(today.Time)
}
