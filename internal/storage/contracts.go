package storage

import (
	"context"
	"fmt"

	"rentdesk/internal/core"
)

const (
	contractColumns = `id, driver_id, vehicle_id, start_date, end_date, status, payment_terms, payment_amount_cents,
		payment_frequency, expected_total_cents, total_paid_cents, balance_cents, created_at, updated_at`
	contractPaymentColumns = `id, contract_id, driver_id, amount_cents, payment_date, payment_method, reference, notes,
		created_at, updated_at`
)

func scanContract(s scanner) (core.Contract, error) {
	var c core.Contract
	var driverID, vehicleID, start, end, created, updated string
	err := s.Scan(&c.ID, &driverID, &vehicleID, &start, &end, &c.Status, &c.PaymentTerms, &c.PaymentAmount.Cents,
		&c.PaymentFrequency, &c.ExpectedTotalPaymentAmount.Cents, &c.TotalAmountPaid.Cents, &c.BalanceLeft.Cents,
		&created, &updated)
	c.Driver = core.RefTo[core.Driver](driverID)
	c.Vehicle = core.RefTo[core.Vehicle](vehicleID)
	c.StartDate, c.EndDate = parseDate(start), parseDate(end)
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, err
}

func (r *SQLiteRepository) CreateContract(ctx context.Context, c core.Contract) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contracts (`+contractColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Driver.ID, c.Vehicle.ID, c.StartDate.String(), c.EndDate.String(), c.Status, c.PaymentTerms,
		c.PaymentAmount.Cents, c.PaymentFrequency, c.ExpectedTotalPaymentAmount.Cents, c.TotalAmountPaid.Cents,
		c.BalanceLeft.Cents, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetContract(ctx context.Context, id string) (core.Contract, error) {
	return queryOne(ctx, r.db, "get contract", scanContract,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListContracts(ctx context.Context) ([]core.Contract, error) {
	return queryAll(ctx, r.db, "list contracts", scanContract,
		`SELECT `+contractColumns+` FROM contracts ORDER BY start_date DESC, created_at DESC`)
}

// ListContractsByStatus is used by the expiry sweeper.
func (r *SQLiteRepository) ListContractsByStatus(ctx context.Context, status core.ContractStatus) ([]core.Contract, error) {
	return queryAll(ctx, r.db, "list contracts by status", scanContract,
		`SELECT `+contractColumns+` FROM contracts WHERE status = ? ORDER BY end_date, id`, status)
}

func (r *SQLiteRepository) UpdateContract(ctx context.Context, c core.Contract) error {
	return r.exec(ctx, "update contract",
		`UPDATE contracts SET driver_id = ?, vehicle_id = ?, start_date = ?, end_date = ?, status = ?, payment_terms = ?,
			payment_amount_cents = ?, payment_frequency = ?, expected_total_cents = ?, total_paid_cents = ?,
			balance_cents = ?, updated_at = ? WHERE id = ?`,
		c.Driver.ID, c.Vehicle.ID, c.StartDate.String(), c.EndDate.String(), c.Status, c.PaymentTerms,
		c.PaymentAmount.Cents, c.PaymentFrequency, c.ExpectedTotalPaymentAmount.Cents, c.TotalAmountPaid.Cents,
		c.BalanceLeft.Cents, formatTime(c.UpdatedAt), c.ID)
}

// Contract payments

func scanContractPayment(s scanner) (core.ContractPayment, error) {
	var p core.ContractPayment
	var contractID, driverID, date, created, updated string
	err := s.Scan(&p.ID, &contractID, &driverID, &p.Amount.Cents, &date, &p.PaymentMethod, &p.Reference, &p.Notes,
		&created, &updated)
	p.Contract = core.RefTo[core.Contract](contractID)
	p.Driver = core.RefTo[core.Driver](driverID)
	p.PaymentDate = parseDate(date)
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return p, err
}

func (r *SQLiteRepository) CreateContractPayment(ctx context.Context, p core.ContractPayment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contract_payments (`+contractPaymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Contract.ID, p.Driver.ID, p.Amount.Cents, p.PaymentDate.String(), p.PaymentMethod, p.Reference, p.Notes,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create contract payment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetContractPayment(ctx context.Context, id string) (core.ContractPayment, error) {
	return queryOne(ctx, r.db, "get contract payment", scanContractPayment,
		`SELECT `+contractPaymentColumns+` FROM contract_payments WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListContractPayments(ctx context.Context) ([]core.ContractPayment, error) {
	return queryAll(ctx, r.db, "list contract payments", scanContractPayment,
		`SELECT `+contractPaymentColumns+` FROM contract_payments ORDER BY payment_date DESC, created_at DESC`)
}

func (r *SQLiteRepository) UpdateContractPayment(ctx context.Context, p core.ContractPayment) error {
	return r.exec(ctx, "update contract payment",
		`UPDATE contract_payments SET contract_id = ?, driver_id = ?, amount_cents = ?, payment_date = ?,
			payment_method = ?, reference = ?, notes = ?, updated_at = ? WHERE id = ?`,
		p.Contract.ID, p.Driver.ID, p.Amount.Cents, p.PaymentDate.String(), p.PaymentMethod, p.Reference, p.Notes,
		formatTime(p.UpdatedAt), p.ID)
}

func (r *SQLiteRepository) DeleteContractPayment(ctx context.Context, id string) error {
	return r.exec(ctx, "delete contract payment", `DELETE FROM contract_payments WHERE id = ?`, id)
}

// SumContractPayments totals every payment recorded against a contract.
func (r *SQLiteRepository) SumContractPayments(ctx context.Context, contractID string) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM contract_payments WHERE contract_id = ?`, contractID).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum contract payments: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// SumAllContractPayments is the contract revenue shown on the dashboard.
func (r *SQLiteRepository) SumAllContractPayments(ctx context.Context) (core.Money, error) {
	var cents int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM contract_payments`).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum all contract payments: %w", err)
	}
	return core.Money{Cents: cents}, nil
}
