package storage

import (
	"context"
	"fmt"
	"time"

	"rentdesk/internal/core"
)

const (
	apartmentColumns = `id, title, location, price_cents, status, description, created_at, updated_at`
	tenantColumns    = `id, tenant_name, tenant_phone, room_description, rented_date, expiration_date, months_rented,
		utility_cents, monthly_price_cents, total_amount_cents, status, apartment_id, created_at, updated_at`
	paymentColumns = `id, tenant_id, amount_paid_cents, method, paid_on, status, created_at, updated_at`
)

// Apartments

func scanApartment(s scanner) (core.Apartment, error) {
	var a core.Apartment
	var created, updated string
	err := s.Scan(&a.ID, &a.Title, &a.Location, &a.Price.Cents, &a.Status, &a.Description, &created, &updated)
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, err
}

func (r *SQLiteRepository) CreateApartment(ctx context.Context, a core.Apartment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO apartments (`+apartmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Location, a.Price.Cents, a.Status, a.Description,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create apartment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetApartment(ctx context.Context, id string) (core.Apartment, error) {
	return queryOne(ctx, r.db, "get apartment", scanApartment,
		`SELECT `+apartmentColumns+` FROM apartments WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListApartments(ctx context.Context) ([]core.Apartment, error) {
	return queryAll(ctx, r.db, "list apartments", scanApartment,
		`SELECT `+apartmentColumns+` FROM apartments ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) UpdateApartment(ctx context.Context, a core.Apartment) error {
	return r.exec(ctx, "update apartment",
		`UPDATE apartments SET title = ?, location = ?, price_cents = ?, status = ?, description = ?, updated_at = ? WHERE id = ?`,
		a.Title, a.Location, a.Price.Cents, a.Status, a.Description, formatTime(a.UpdatedAt), a.ID)
}

func (r *SQLiteRepository) DeleteApartment(ctx context.Context, id string) error {
	return r.exec(ctx, "delete apartment", `DELETE FROM apartments WHERE id = ?`, id)
}

// TenantIDsByApartment maps every apartment id to the ids of the tenants
// pointing at it.
func (r *SQLiteRepository) TenantIDsByApartment(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT apartment_id, id FROM tenants WHERE apartment_id != '' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list apartment tenants: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var apartmentID, tenantID string
		if err := rows.Scan(&apartmentID, &tenantID); err != nil {
			return nil, fmt.Errorf("list apartment tenants: scan: %w", err)
		}
		out[apartmentID] = append(out[apartmentID], tenantID)
	}
	return out, rows.Err()
}

// DetachTenants clears the apartment reference of every tenant in it and
// returns the ids it touched.
func (r *SQLiteRepository) DetachTenants(ctx context.Context, apartmentID string, at time.Time) ([]string, error) {
	tenants, err := r.ListTenantsByApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET apartment_id = '', updated_at = ? WHERE apartment_id = ?`, formatTime(at), apartmentID); err != nil {
		return nil, fmt.Errorf("detach tenants: %w", err)
	}
	ids := make([]string, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
	}
	return ids, nil
}

// Tenants

func scanTenant(s scanner) (core.Tenant, error) {
	var t core.Tenant
	var rented, expires, apartmentID, created, updated string
	err := s.Scan(&t.ID, &t.TenantName, &t.TenantPhone, &t.RoomDescription, &rented, &expires,
		&t.NoOfMonthsRented, &t.AmountPaidOnUtility.Cents, &t.MonthlyPrice.Cents, &t.TotalAmount.Cents,
		&t.Status, &apartmentID, &created, &updated)
	t.RentedDate, t.ExpirationDate = parseDate(rented), parseDate(expires)
	t.Apartment = core.RefTo[core.Apartment](apartmentID)
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	return t, err
}

func (r *SQLiteRepository) CreateTenant(ctx context.Context, t core.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantName, t.TenantPhone, t.RoomDescription, t.RentedDate.String(), t.ExpirationDate.String(),
		t.NoOfMonthsRented, t.AmountPaidOnUtility.Cents, t.MonthlyPrice.Cents, t.TotalAmount.Cents,
		t.Status, t.Apartment.ID, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTenant(ctx context.Context, id string) (core.Tenant, error) {
	return queryOne(ctx, r.db, "get tenant", scanTenant,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	return queryAll(ctx, r.db, "list tenants", scanTenant,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) ListTenantsByApartment(ctx context.Context, apartmentID string) ([]core.Tenant, error) {
	return queryAll(ctx, r.db, "list tenants by apartment", scanTenant,
		`SELECT `+tenantColumns+` FROM tenants WHERE apartment_id = ? ORDER BY created_at DESC, id`, apartmentID)
}

func (r *SQLiteRepository) UpdateTenant(ctx context.Context, t core.Tenant) error {
	return r.exec(ctx, "update tenant",
		`UPDATE tenants SET tenant_name = ?, tenant_phone = ?, room_description = ?, rented_date = ?, expiration_date = ?,
			months_rented = ?, utility_cents = ?, monthly_price_cents = ?, total_amount_cents = ?, status = ?,
			apartment_id = ?, updated_at = ? WHERE id = ?`,
		t.TenantName, t.TenantPhone, t.RoomDescription, t.RentedDate.String(), t.ExpirationDate.String(),
		t.NoOfMonthsRented, t.AmountPaidOnUtility.Cents, t.MonthlyPrice.Cents, t.TotalAmount.Cents, t.Status,
		t.Apartment.ID, formatTime(t.UpdatedAt), t.ID)
}

// Payments

func scanPayment(s scanner) (core.Payment, error) {
	var p core.Payment
	var tenantID, paidOn, created, updated string
	err := s.Scan(&p.ID, &tenantID, &p.AmountPaid.Cents, &p.Method, &paidOn, &p.Status, &created, &updated)
	p.Tenant = core.RefTo[core.Tenant](tenantID)
	p.Date = parseDate(paidOn)
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return p, err
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Tenant.ID, p.AmountPaid.Cents, p.Method, p.Date.String(), p.Status,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	return queryOne(ctx, r.db, "get payment", scanPayment,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return queryAll(ctx, r.db, "list payments", scanPayment,
		`SELECT `+paymentColumns+` FROM payments ORDER BY paid_on DESC, created_at DESC`)
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	return r.exec(ctx, "update payment",
		`UPDATE payments SET tenant_id = ?, amount_paid_cents = ?, method = ?, paid_on = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Tenant.ID, p.AmountPaid.Cents, p.Method, p.Date.String(), p.Status, formatTime(p.UpdatedAt), p.ID)
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	return r.exec(ctx, "delete payment", `DELETE FROM payments WHERE id = ?`, id)
}
