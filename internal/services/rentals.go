package services

import (
	"context"
	"fmt"

	"rentdesk/internal/amqp"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

// Apartments

func (s *Service) CreateApartment(ctx context.Context, a core.Apartment) (core.Apartment, error) {
	a.ID = ""
	a.Tenants = nil
	a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Apartment{}, err
	}
	a.Stamp(s.now())
	if err := s.storage.CreateApartment(ctx, a); err != nil {
		return core.Apartment{}, fmt.Errorf("save apartment: %w", err)
	}
	s.notify(ctx, core.ResourceApartments, a.ID, amqp.ActionCreated)
	return a, nil
}

func (s *Service) GetApartment(ctx context.Context, id string) (core.Apartment, error) {
	a, err := s.storage.GetApartment(ctx, id)
	if err != nil {
		return core.Apartment{}, err
	}
	tenants, err := s.storage.ListTenantsByApartment(ctx, id)
	if err != nil {
		return core.Apartment{}, err
	}
	a.Tenants = make([]string, len(tenants))
	for i, t := range tenants {
		a.Tenants[i] = t.ID
	}
	a.Normalize()
	return a, nil
}

// ListApartments returns every apartment with its derived tenant list.
func (s *Service) ListApartments(ctx context.Context) ([]core.Apartment, error) {
	apartments, err := s.storage.ListApartments(ctx)
	if err != nil {
		return nil, err
	}
	byApartment, err := s.storage.TenantIDsByApartment(ctx)
	if err != nil {
		return nil, err
	}
	for i := range apartments {
		apartments[i].Tenants = byApartment[apartments[i].ID]
		apartments[i].Normalize()
	}
	return apartments, nil
}

func (s *Service) UpdateApartment(ctx context.Context, id string, a core.Apartment) (core.Apartment, error) {
	existing, err := s.GetApartment(ctx, id)
	if err != nil {
		return core.Apartment{}, err
	}
	a.Record = existing.Record
	a.Tenants = existing.Tenants
	a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Apartment{}, err
	}
	a.Stamp(s.now())
	if err := s.storage.UpdateApartment(ctx, a); err != nil {
		return core.Apartment{}, fmt.Errorf("update apartment: %w", err)
	}
	s.notify(ctx, core.ResourceApartments, a.ID, amqp.ActionUpdated)
	return a, nil
}

// DeleteApartment removes an apartment and detaches the tenants living in it.
func (s *Service) DeleteApartment(ctx context.Context, id string) error {
	if _, err := s.storage.GetApartment(ctx, id); err != nil {
		return err
	}
	detached, err := s.storage.DetachTenants(ctx, id, s.now())
	if err != nil {
		return err
	}
	if err := s.storage.DeleteApartment(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, core.ResourceApartments, id, amqp.ActionDeleted)
	for _, tenantID := range detached {
		s.notify(ctx, core.ResourceTenants, tenantID, amqp.ActionUpdated)
	}
	return nil
}

// ApartmentTenants lists the tenants of one apartment.
func (s *Service) ApartmentTenants(ctx context.Context, apartmentID string) ([]core.Tenant, error) {
	a, err := s.GetApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	tenants, err := s.storage.ListTenantsByApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		tenants[i].Apartment = core.Populated(a.ID, a)
	}
	return tenants, nil
}

// Tenants

func (s *Service) CreateTenant(ctx context.Context, t core.Tenant) (core.Tenant, error) {
	t.ID = ""
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Tenant{}, err
	}
	if err := s.checkApartment(ctx, t.Apartment.ID); err != nil {
		return core.Tenant{}, err
	}
	t.Apartment = core.RefTo[core.Apartment](t.Apartment.ID)
	t.Stamp(s.now())
	if err := s.storage.CreateTenant(ctx, t); err != nil {
		return core.Tenant{}, fmt.Errorf("save tenant: %w", err)
	}
	s.notify(ctx, core.ResourceTenants, t.ID, amqp.ActionCreated)
	s.touchApartments(ctx, t.Apartment.ID)
	return s.populateTenant(ctx, t), nil
}

func (s *Service) GetTenant(ctx context.Context, id string) (core.Tenant, error) {
	t, err := s.storage.GetTenant(ctx, id)
	if err != nil {
		return core.Tenant{}, err
	}
	return s.populateTenant(ctx, t), nil
}

func (s *Service) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	tenants, err := s.storage.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	apartments, err := s.storage.ListApartments(ctx)
	if err != nil {
		return nil, err
	}
	byID := index(apartments, func(a core.Apartment) string { return a.ID })
	for i := range tenants {
		populate(&tenants[i].Apartment, byID)
	}
	return tenants, nil
}

func (s *Service) UpdateTenant(ctx context.Context, id string, t core.Tenant) (core.Tenant, error) {
	existing, err := s.storage.GetTenant(ctx, id)
	if err != nil {
		return core.Tenant{}, err
	}
	t.Record = existing.Record
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Tenant{}, err
	}
	if err := s.checkApartment(ctx, t.Apartment.ID); err != nil {
		return core.Tenant{}, err
	}
	t.Apartment = core.RefTo[core.Apartment](t.Apartment.ID)
	return s.saveTenant(ctx, t, existing.Apartment.ID)
}

// saveTenant persists an existing tenant and announces the change along with
// the apartments whose derived tenant list moved.
func (s *Service) saveTenant(ctx context.Context, t core.Tenant, previousApartment string) (core.Tenant, error) {
	t.Stamp(s.now())
	if err := s.storage.UpdateTenant(ctx, t); err != nil {
		return core.Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	s.notify(ctx, core.ResourceTenants, t.ID, amqp.ActionUpdated)
	if previousApartment != t.Apartment.ID {
		s.touchApartments(ctx, previousApartment, t.Apartment.ID)
	}
	return s.populateTenant(ctx, t), nil
}

func (s *Service) DeleteTenant(ctx context.Context, id string) error {
	existing, err := s.storage.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	removed, err := s.storage.DeleteWithDependents(ctx, "tenants", id, storage.PaymentsByTenant)
	if err != nil {
		return err
	}
	s.notify(ctx, core.ResourceTenants, id, amqp.ActionDeleted)
	for _, paymentID := range removed[storage.PaymentsByTenant] {
		s.notify(ctx, core.ResourcePayments, paymentID, amqp.ActionDeleted)
	}
	s.touchApartments(ctx, existing.Apartment.ID)
	return nil
}

func (s *Service) checkApartment(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.storage.GetApartment(ctx, id)
	return mustExist(err, "apartment", id)
}

// touchApartments marks apartments as changed so their tenant counts are
// mirrored again.
func (s *Service) touchApartments(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if id != "" {
			s.notify(ctx, core.ResourceApartments, id, amqp.ActionUpdated)
		}
	}
}

func (s *Service) populateTenant(ctx context.Context, t core.Tenant) core.Tenant {
	if t.Apartment.ID == "" {
		return t
	}
	if a, err := s.storage.GetApartment(ctx, t.Apartment.ID); err == nil {
		t.Apartment = core.Populated(a.ID, a)
	}
	return t
}

// Payments

func (s *Service) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	p.ID = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if err := s.checkTenant(ctx, p.Tenant.ID); err != nil {
		return core.Payment{}, err
	}
	p.Tenant = core.RefTo[core.Tenant](p.Tenant.ID)
	p.Stamp(s.now())
	if err := s.storage.CreatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.notify(ctx, core.ResourcePayments, p.ID, amqp.ActionCreated)
	return s.populatePayment(ctx, p), nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	p, err := s.storage.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, err
	}
	return s.populatePayment(ctx, p), nil
}

func (s *Service) ListPayments(ctx context.Context) ([]core.Payment, error) {
	payments, err := s.storage.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	tenants, err := s.storage.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	byID := index(tenants, func(t core.Tenant) string { return t.ID })
	for i := range payments {
		populate(&payments[i].Tenant, byID)
	}
	return payments, nil
}

func (s *Service) UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Payment, error) {
	existing, err := s.storage.GetPayment(ctx, id)
	if err != nil {
		return core.Payment{}, err
	}
	p.Record = existing.Record
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if p.Tenant.ID != existing.Tenant.ID {
		if err := s.checkTenant(ctx, p.Tenant.ID); err != nil {
			return core.Payment{}, err
		}
	}
	p.Tenant = core.RefTo[core.Tenant](p.Tenant.ID)
	p.Stamp(s.now())
	if err := s.storage.UpdatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	s.notify(ctx, core.ResourcePayments, p.ID, amqp.ActionUpdated)
	return s.populatePayment(ctx, p), nil
}

func (s *Service) DeletePayment(ctx context.Context, id string) error {
	if err := s.storage.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, core.ResourcePayments, id, amqp.ActionDeleted)
	return nil
}

func (s *Service) checkTenant(ctx context.Context, id string) error {
	_, err := s.storage.GetTenant(ctx, id)
	return mustExist(err, "tenant", id)
}

func (s *Service) populatePayment(ctx context.Context, p core.Payment) core.Payment {
	if t, err := s.storage.GetTenant(ctx, p.Tenant.ID); err == nil {
		p.Tenant = core.Populated(t.ID, t)
	}
	return p
}
