package services

import (
	"context"
	"fmt"

	"rentdesk/internal/amqp"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

// Drivers

func (s *Service) CreateDriver(ctx context.Context, d core.Driver) (core.Driver, error) {
	d.ID = ""
	if err := d.Validate(); err != nil {
		return core.Driver{}, err
	}
	d.Stamp(s.now())
	if err := s.storage.CreateDriver(ctx, d); err != nil {
		return core.Driver{}, fmt.Errorf("save driver: %w", err)
	}
	s.notify(ctx, core.ResourceDrivers, d.ID, amqp.ActionCreated)
	return d, nil
}

func (s *Service) GetDriver(ctx context.Context, id string) (core.Driver, error) {
	return s.storage.GetDriver(ctx, id)
}

func (s *Service) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	return s.storage.ListDrivers(ctx)
}

func (s *Service) UpdateDriver(ctx context.Context, id string, d core.Driver) (core.Driver, error) {
	existing, err := s.storage.GetDriver(ctx, id)
	if err != nil {
		return core.Driver{}, err
	}
	d.Record = existing.Record
	if err := d.Validate(); err != nil {
		return core.Driver{}, err
	}
	d.Stamp(s.now())
	if err := s.storage.UpdateDriver(ctx, d); err != nil {
		return core.Driver{}, fmt.Errorf("update driver: %w", err)
	}
	s.notify(ctx, core.ResourceDrivers, d.ID, amqp.ActionUpdated)
	return d, nil
}

// DeleteDriver refuses while contracts or contract payments name the driver.
// Vehicles assigned to the driver are unassigned.
func (s *Service) DeleteDriver(ctx context.Context, id string) error {
	if err := s.refuseIfReferenced(ctx, "driver", id,
		storage.ContractsByDriver, storage.ContractPaymentsByDriver); err != nil {
		return err
	}
	detached, err := s.storage.DeleteDetaching(ctx, "drivers", id, storage.VehiclesByDriver, s.now())
	if err != nil {
		return err
	}
	s.notify(ctx, core.ResourceDrivers, id, amqp.ActionDeleted)
	for _, vehicleID := range detached {
		s.notify(ctx, core.ResourceVehicles, vehicleID, amqp.ActionUpdated)
	}
	return nil
}

func (s *Service) checkDriver(ctx context.Context, id string) error {
	_, err := s.storage.GetDriver(ctx, id)
	return mustExist(err, "driver", id)
}

// Vehicles

func (s *Service) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	v.ID = ""
	v.Normalize()
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	if v.Driver.ID != "" {
		if err := s.checkDriver(ctx, v.Driver.ID); err != nil {
			return core.Vehicle{}, err
		}
	}
	v.Driver = core.RefTo[core.Driver](v.Driver.ID)
	v.Stamp(s.now())
	if err := s.storage.CreateVehicle(ctx, v); err != nil {
		return core.Vehicle{}, fmt.Errorf("save vehicle: %w", err)
	}
	s.notify(ctx, core.ResourceVehicles, v.ID, amqp.ActionCreated)
	return s.populateVehicle(ctx, v), nil
}

func (s *Service) GetVehicle(ctx context.Context, id string) (core.Vehicle, error) {
	v, err := s.storage.GetVehicle(ctx, id)
	if err != nil {
		return core.Vehicle{}, err
	}
	return s.populateVehicle(ctx, v), nil
}

func (s *Service) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	vehicles, err := s.storage.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.storage.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	byID := index(drivers, func(d core.Driver) string { return d.ID })
	for i := range vehicles {
		populate(&vehicles[i].Driver, byID)
	}
	return vehicles, nil
}

func (s *Service) UpdateVehicle(ctx context.Context, id string, v core.Vehicle) (core.Vehicle, error) {
	existing, err := s.storage.GetVehicle(ctx, id)
	if err != nil {
		return core.Vehicle{}, err
	}
	v.Record = existing.Record
	v.Normalize()
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	if v.Driver.ID != "" && v.Driver.ID != existing.Driver.ID {
		if err := s.checkDriver(ctx, v.Driver.ID); err != nil {
			return core.Vehicle{}, err
		}
	}
	v.Driver = core.RefTo[core.Driver](v.Driver.ID)
	v.Stamp(s.now())
	if err := s.storage.UpdateVehicle(ctx, v); err != nil {
		return core.Vehicle{}, fmt.Errorf("update vehicle: %w", err)
	}
	s.notify(ctx, core.ResourceVehicles, v.ID, amqp.ActionUpdated)
	return s.populateVehicle(ctx, v), nil
}

// DeleteVehicle refuses while contracts name the vehicle. Its maintenance
// records go with it.
func (s *Service) DeleteVehicle(ctx context.Context, id string) error {
	if err := s.refuseIfReferenced(ctx, "vehicle", id, storage.ContractsByVehicle); err != nil {
		return err
	}
	removed, err := s.storage.DeleteWithDependents(ctx, "vehicles", id, storage.MaintenanceByVehicle)
	if err != nil {
		return err
	}
	s.notify(ctx, core.ResourceVehicles, id, amqp.ActionDeleted)
	for _, recordID := range removed[storage.MaintenanceByVehicle] {
		s.notify(ctx, core.ResourceMaintenance, recordID, amqp.ActionDeleted)
	}
	return nil
}

func (s *Service) checkVehicle(ctx context.Context, id string) error {
	_, err := s.storage.GetVehicle(ctx, id)
	return mustExist(err, "vehicle", id)
}

func (s *Service) populateVehicle(ctx context.Context, v core.Vehicle) core.Vehicle {
	if v.Driver.ID == "" {
		return v
	}
	if d, err := s.storage.GetDriver(ctx, v.Driver.ID); err == nil {
		v.Driver = core.Populated(d.ID, d)
	}
	return v
}

// Maintenance records

func (s *Service) CreateMaintenance(ctx context.Context, m core.MaintenanceRecord) (core.MaintenanceRecord, error) {
	m.ID = ""
	m.Normalize()
	if err := m.Validate(); err != nil {
		return core.MaintenanceRecord{}, err
	}
	if err := s.checkVehicle(ctx, m.Vehicle.ID); err != nil {
		return core.MaintenanceRecord{}, err
	}
	m.Vehicle = core.RefTo[core.Vehicle](m.Vehicle.ID)
	m.Stamp(s.now())
	if err := s.storage.CreateMaintenance(ctx, m); err != nil {
		return core.MaintenanceRecord{}, fmt.Errorf("save maintenance record: %w", err)
	}
	s.notify(ctx, core.ResourceMaintenance, m.ID, amqp.ActionCreated)
	return s.populateMaintenance(ctx, m), nil
}

func (s *Service) GetMaintenance(ctx context.Context, id string) (core.MaintenanceRecord, error) {
	m, err := s.storage.GetMaintenance(ctx, id)
	if err != nil {
		return core.MaintenanceRecord{}, err
	}
	return s.populateMaintenance(ctx, m), nil
}

func (s *Service) ListMaintenance(ctx context.Context) ([]core.MaintenanceRecord, error) {
	records, err := s.storage.ListMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.storage.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	byID := index(vehicles, func(v core.Vehicle) string { return v.ID })
	for i := range records {
		populate(&records[i].Vehicle, byID)
	}
	return records, nil
}

func (s *Service) UpdateMaintenance(ctx context.Context, id string, m core.MaintenanceRecord) (core.MaintenanceRecord, error) {
	existing, err := s.storage.GetMaintenance(ctx, id)
	if err != nil {
		return core.MaintenanceRecord{}, err
	}
	m.Record = existing.Record
	m.Normalize()
	if err := m.Validate(); err != nil {
		return core.MaintenanceRecord{}, err
	}
	if m.Vehicle.ID != existing.Vehicle.ID {
		if err := s.checkVehicle(ctx, m.Vehicle.ID); err != nil {
			return core.MaintenanceRecord{}, err
		}
	}
	m.Vehicle = core.RefTo[core.Vehicle](m.Vehicle.ID)
	m.Stamp(s.now())
	if err := s.storage.UpdateMaintenance(ctx, m); err != nil {
		return core.MaintenanceRecord{}, fmt.Errorf("update maintenance record: %w", err)
	}
	s.notify(ctx, core.ResourceMaintenance, m.ID, amqp.ActionUpdated)
	return s.populateMaintenance(ctx, m), nil
}

func (s *Service) DeleteMaintenance(ctx context.Context, id string) error {
	if err := s.storage.DeleteMaintenance(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, core.ResourceMaintenance, id, amqp.ActionDeleted)
	return nil
}

func (s *Service) populateMaintenance(ctx context.Context, m core.MaintenanceRecord) core.MaintenanceRecord {
	if v, err := s.storage.GetVehicle(ctx, m.Vehicle.ID); err == nil {
		m.Vehicle = core.Populated(v.ID, v)
	}
	return m
}
