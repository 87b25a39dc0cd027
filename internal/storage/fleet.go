package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"rentdesk/internal/core"
)

const (
	driverColumns      = `id, first_name, last_name, phone, address, license_number, license_expiry, is_active, created_at, updated_at`
	vehicleColumns     = `id, vehicle_type, make, model, reg_num, chassis_num, maintenance_hist, driver_id, created_at, updated_at`
	maintenanceColumns = `id, vehicle_id, maintenance_date, cost_cents, issues, status, created_at, updated_at`
)

// Drivers

func scanDriver(s scanner) (core.Driver, error) {
	var d core.Driver
	var expiry, created, updated string
	var active int
	err := s.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Phone, &d.Address, &d.LicenseNumber, &expiry, &active, &created, &updated)
	d.LicenseExpiry = parseDate(expiry)
	d.IsActive = active != 0
	d.CreatedAt, d.UpdatedAt = parseTime(created), parseTime(updated)
	return d, err
}

func (r *SQLiteRepository) CreateDriver(ctx context.Context, d core.Driver) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drivers (`+driverColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.FirstName, d.LastName, d.Phone, d.Address, d.LicenseNumber, d.LicenseExpiry.String(),
		boolToInt(d.IsActive), formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDriver(ctx context.Context, id string) (core.Driver, error) {
	return queryOne(ctx, r.db, "get driver", scanDriver,
		`SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	return queryAll(ctx, r.db, "list drivers", scanDriver,
		`SELECT `+driverColumns+` FROM drivers ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) UpdateDriver(ctx context.Context, d core.Driver) error {
	return r.exec(ctx, "update driver",
		`UPDATE drivers SET first_name = ?, last_name = ?, phone = ?, address = ?, license_number = ?,
			license_expiry = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		d.FirstName, d.LastName, d.Phone, d.Address, d.LicenseNumber, d.LicenseExpiry.String(),
		boolToInt(d.IsActive), formatTime(d.UpdatedAt), d.ID)
}

// Vehicles

func scanVehicle(s scanner) (core.Vehicle, error) {
	var v core.Vehicle
	var hist, driverID, created, updated string
	if err := s.Scan(&v.ID, &v.VehicleType, &v.Make, &v.Model, &v.VehicleRegNum, &v.ChassisNum,
		&hist, &driverID, &created, &updated); err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(hist), &v.MaintenanceHist); err != nil {
		return v, fmt.Errorf("decode maintenance history of %s: %w", v.ID, err)
	}
	v.Driver = core.RefTo[core.Driver](driverID)
	v.CreatedAt, v.UpdatedAt = parseTime(created), parseTime(updated)
	return v, nil
}

func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v core.Vehicle) error {
	hist, err := encodeJSON(v.MaintenanceHist)
	if err != nil {
		return fmt.Errorf("create vehicle: encode history: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.VehicleType, v.Make, v.Model, v.VehicleRegNum, v.ChassisNum, hist, v.Driver.ID,
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetVehicle(ctx context.Context, id string) (core.Vehicle, error) {
	return queryOne(ctx, r.db, "get vehicle", scanVehicle,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	return queryAll(ctx, r.db, "list vehicles", scanVehicle,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY created_at DESC, id`)
}

func (r *SQLiteRepository) UpdateVehicle(ctx context.Context, v core.Vehicle) error {
	hist, err := encodeJSON(v.MaintenanceHist)
	if err != nil {
		return fmt.Errorf("update vehicle: encode history: %w", err)
	}
	return r.exec(ctx, "update vehicle",
		`UPDATE vehicles SET vehicle_type = ?, make = ?, model = ?, reg_num = ?, chassis_num = ?,
			maintenance_hist = ?, driver_id = ?, updated_at = ? WHERE id = ?`,
		v.VehicleType, v.Make, v.Model, v.VehicleRegNum, v.ChassisNum, hist, v.Driver.ID,
		formatTime(v.UpdatedAt), v.ID)
}

// Maintenance records

func scanMaintenance(s scanner) (core.MaintenanceRecord, error) {
	var m core.MaintenanceRecord
	var vehicleID, date, issues, created, updated string
	if err := s.Scan(&m.ID, &vehicleID, &date, &m.Cost.Cents, &issues, &m.Status, &created, &updated); err != nil {
		return m, err
	}
	if err := json.Unmarshal([]byte(issues), &m.Issue); err != nil {
		return m, fmt.Errorf("decode issues of %s: %w", m.ID, err)
	}
	m.Vehicle = core.RefTo[core.Vehicle](vehicleID)
	m.MaintenanceDate = parseDate(date)
	m.CreatedAt, m.UpdatedAt = parseTime(created), parseTime(updated)
	return m, nil
}

func (r *SQLiteRepository) CreateMaintenance(ctx context.Context, m core.MaintenanceRecord) error {
	issues, err := encodeJSON(m.Issue)
	if err != nil {
		return fmt.Errorf("create maintenance record: encode issues: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO maintenance_records (`+maintenanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Vehicle.ID, m.MaintenanceDate.String(), m.Cost.Cents, issues, m.Status,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create maintenance record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetMaintenance(ctx context.Context, id string) (core.MaintenanceRecord, error) {
	return queryOne(ctx, r.db, "get maintenance record", scanMaintenance,
		`SELECT `+maintenanceColumns+` FROM maintenance_records WHERE id = ?`, id)
}

func (r *SQLiteRepository) ListMaintenance(ctx context.Context) ([]core.MaintenanceRecord, error) {
	return queryAll(ctx, r.db, "list maintenance records", scanMaintenance,
		`SELECT `+maintenanceColumns+` FROM maintenance_records ORDER BY maintenance_date DESC, created_at DESC`)
}

func (r *SQLiteRepository) UpdateMaintenance(ctx context.Context, m core.MaintenanceRecord) error {
	issues, err := encodeJSON(m.Issue)
	if err != nil {
		return fmt.Errorf("update maintenance record: encode issues: %w", err)
	}
	return r.exec(ctx, "update maintenance record",
		`UPDATE maintenance_records SET vehicle_id = ?, maintenance_date = ?, cost_cents = ?, issues = ?, status = ?,
			updated_at = ? WHERE id = ?`,
		m.Vehicle.ID, m.MaintenanceDate.String(), m.Cost.Cents, issues, m.Status, formatTime(m.UpdatedAt), m.ID)
}

func (r *SQLiteRepository) DeleteMaintenance(ctx context.Context, id string) error {
	return r.exec(ctx, "delete maintenance record", `DELETE FROM maintenance_records WHERE id = ?`, id)
}
