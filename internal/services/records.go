package services

import (
	"context"
	"fmt"

	"rentdesk/internal/core"
)

// Records returns every record of an exportable resource with its
// references populated.
func (s *Service) Records(ctx context.Context, resource string) ([]any, error) {
	switch resource {
	case core.ResourceApartments:
		return collect(s.ListApartments(ctx))
	case core.ResourceTenants:
		return collect(s.ListTenants(ctx))
	case core.ResourcePayments:
		return collect(s.ListPayments(ctx))
	case core.ResourceVehicles:
		return collect(s.ListVehicles(ctx))
	case core.ResourceMaintenance:
		return collect(s.ListMaintenance(ctx))
	case core.ResourceDrivers:
		return collect(s.ListDrivers(ctx))
	case core.ResourceContracts:
		return collect(s.ListContracts(ctx))
	case core.ResourceContractPayments:
		return collect(s.ListContractPayments(ctx))
	}
	return nil, fmt.Errorf("unknown resource %q", resource)
}

// Record loads one record of an exportable resource.
func (s *Service) Record(ctx context.Context, resource, id string) (any, error) {
	switch resource {
	case core.ResourceApartments:
		return one(s.GetApartment(ctx, id))
	case core.ResourceTenants:
		return one(s.GetTenant(ctx, id))
	case core.ResourcePayments:
		return one(s.GetPayment(ctx, id))
	case core.ResourceVehicles:
		return one(s.GetVehicle(ctx, id))
	case core.ResourceMaintenance:
		return one(s.GetMaintenance(ctx, id))
	case core.ResourceDrivers:
		return one(s.GetDriver(ctx, id))
	case core.ResourceContracts:
		return one(s.GetContract(ctx, id))
	case core.ResourceContractPayments:
		return one(s.GetContractPayment(ctx, id))
	}
	return nil, fmt.Errorf("unknown resource %q", resource)
}

func collect[T any](items []T, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

func one[T any](item T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return item, nil
}
