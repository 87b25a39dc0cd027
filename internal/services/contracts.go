package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentdesk/internal/amqp"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

// Quote is the period calculation for a contract draft.
type Quote struct {
	Periods                    int           `json:"periods"`
	ExpectedTotalPaymentAmount core.Money    `json:"expectedTotalPaymentAmount"`
	BalanceLeft                core.Money    `json:"balanceLeft"`
	Standing                   core.Standing `json:"standing"`
}

// QuoteContract derives the totals of c without saving anything.
func QuoteContract(c core.Contract, asOf time.Time) Quote {
	periods := c.Derive()
	return Quote{
		Periods:                    periods,
		ExpectedTotalPaymentAmount: c.ExpectedTotalPaymentAmount,
		BalanceLeft:                c.BalanceLeft,
		Standing:                   c.StandingAt(asOf),
	}
}

// Quote is QuoteContract at the service clock.
func (s *Service) Quote(c core.Contract) Quote {
	return QuoteContract(c, s.now())
}

// Contracts

func (s *Service) CreateContract(ctx context.Context, c core.Contract) (core.Contract, error) {
	c.ID = ""
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Contract{}, err
	}
	if err := s.checkContractParties(ctx, c, core.Contract{}); err != nil {
		return core.Contract{}, err
	}
	c.Driver = core.RefTo[core.Driver](c.Driver.ID)
	c.Vehicle = core.RefTo[core.Vehicle](c.Vehicle.ID)
	c.Stamp(s.now())
	if err := s.storage.CreateContract(ctx, c); err != nil {
		return core.Contract{}, fmt.Errorf("save contract: %w", err)
	}
	s.notify(ctx, core.ResourceContracts, c.ID, amqp.ActionCreated)
	return s.populateContract(ctx, c), nil
}

func (s *Service) GetContract(ctx context.Context, id string) (core.Contract, error) {
	c, err := s.storage.GetContract(ctx, id)
	if err != nil {
		return core.Contract{}, err
	}
	return s.populateContract(ctx, c), nil
}

func (s *Service) ListContracts(ctx context.Context) ([]core.Contract, error) {
	contracts, err := s.storage.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	return s.populateContracts(ctx, contracts)
}

func (s *Service) populateContracts(ctx context.Context, contracts []core.Contract) ([]core.Contract, error) {
	drivers, err := s.storage.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.storage.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	driversByID := index(drivers, func(d core.Driver) string { return d.ID })
	vehiclesByID := index(vehicles, func(v core.Vehicle) string { return v.ID })
	for i := range contracts {
		populate(&contracts[i].Driver, driversByID)
		populate(&contracts[i].Vehicle, vehiclesByID)
	}
	return contracts, nil
}

// UpdateContract replaces a contract. When payments have been recorded
// against it, totalAmountPaid is their sum and the entered value is ignored.
func (s *Service) UpdateContract(ctx context.Context, id string, c core.Contract) (core.Contract, error) {
	existing, err := s.storage.GetContract(ctx, id)
	if err != nil {
		return core.Contract{}, err
	}
	c.Record = existing.Record
	paid, err := s.storage.SumContractPayments(ctx, id)
	if err != nil {
		return core.Contract{}, err
	}
	if !paid.IsZero() {
		c.TotalAmountPaid = paid
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Contract{}, err
	}
	if err := s.checkContractParties(ctx, c, existing); err != nil {
		return core.Contract{}, err
	}
	c.Driver = core.RefTo[core.Driver](c.Driver.ID)
	c.Vehicle = core.RefTo[core.Vehicle](c.Vehicle.ID)
	if err := s.saveContract(ctx, &c); err != nil {
		return core.Contract{}, err
	}
	return s.populateContract(ctx, c), nil
}

func (s *Service) saveContract(ctx context.Context, c *core.Contract) error {
	c.Stamp(s.now())
	if err := s.storage.UpdateContract(ctx, *c); err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	s.notify(ctx, core.ResourceContracts, c.ID, amqp.ActionUpdated)
	return nil
}

// DeleteContract removes the contract and every payment made against it.
func (s *Service) DeleteContract(ctx context.Context, id string) error {
	removed, err := s.storage.DeleteWithDependents(ctx, "contracts", id, storage.ContractPaymentsByContract)
	if err != nil {
		return err
	}
	s.notify(ctx, core.ResourceContracts, id, amqp.ActionDeleted)
	for _, paymentID := range removed[storage.ContractPaymentsByContract] {
		s.notify(ctx, core.ResourceContractPayments, paymentID, amqp.ActionDeleted)
	}
	return nil
}

// checkContractParties looks up the driver and vehicle of c. A party kept
// from previous is not looked up again.
func (s *Service) checkContractParties(ctx context.Context, c, previous core.Contract) error {
	if c.Driver.ID != previous.Driver.ID || previous.ID == "" {
		if err := s.checkDriver(ctx, c.Driver.ID); err != nil {
			return err
		}
	}
	if c.Vehicle.ID != previous.Vehicle.ID || previous.ID == "" {
		return s.checkVehicle(ctx, c.Vehicle.ID)
	}
	return nil
}

func (s *Service) populateContract(ctx context.Context, c core.Contract) core.Contract {
	if d, err := s.storage.GetDriver(ctx, c.Driver.ID); err == nil {
		c.Driver = core.Populated(d.ID, d)
	}
	if v, err := s.storage.GetVehicle(ctx, c.Vehicle.ID); err == nil {
		c.Vehicle = core.Populated(v.ID, v)
	}
	return c
}

// rollUpContract sets a contract's totalAmountPaid to the sum of its
// payments and re-derives its balance.
func (s *Service) rollUpContract(ctx context.Context, contractID string) error {
	c, err := s.storage.GetContract(ctx, contractID)
	if err != nil {
		return err
	}
	paid, err := s.storage.SumContractPayments(ctx, contractID)
	if err != nil {
		return err
	}
	c.TotalAmountPaid = paid
	c.Derive()
	return s.saveContract(ctx, &c)
}

// Contract payments

func (s *Service) CreateContractPayment(ctx context.Context, p core.ContractPayment) (core.ContractPayment, error) {
	p.ID = ""
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.ContractPayment{}, err
	}
	if err := s.checkPaymentParties(ctx, p, core.ContractPayment{}); err != nil {
		return core.ContractPayment{}, err
	}
	p.Contract = core.RefTo[core.Contract](p.Contract.ID)
	p.Driver = core.RefTo[core.Driver](p.Driver.ID)
	p.Stamp(s.now())
	if err := s.storage.CreateContractPayment(ctx, p); err != nil {
		return core.ContractPayment{}, fmt.Errorf("save contract payment: %w", err)
	}
	s.notify(ctx, core.ResourceContractPayments, p.ID, amqp.ActionCreated)
	if err := s.rollUpContract(ctx, p.Contract.ID); err != nil {
		return core.ContractPayment{}, fmt.Errorf("roll up contract: %w", err)
	}
	return s.populateContractPayment(ctx, p), nil
}

func (s *Service) GetContractPayment(ctx context.Context, id string) (core.ContractPayment, error) {
	p, err := s.storage.GetContractPayment(ctx, id)
	if err != nil {
		return core.ContractPayment{}, err
	}
	return s.populateContractPayment(ctx, p), nil
}

func (s *Service) ListContractPayments(ctx context.Context) ([]core.ContractPayment, error) {
	payments, err := s.storage.ListContractPayments(ctx)
	if err != nil {
		return nil, err
	}
	contracts, err := s.storage.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	drivers, err := s.storage.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	contractsByID := index(contracts, func(c core.Contract) string { return c.ID })
	driversByID := index(drivers, func(d core.Driver) string { return d.ID })
	for i := range payments {
		populate(&payments[i].Contract, contractsByID)
		populate(&payments[i].Driver, driversByID)
	}
	return payments, nil
}

func (s *Service) UpdateContractPayment(ctx context.Context, id string, p core.ContractPayment) (core.ContractPayment, error) {
	existing, err := s.storage.GetContractPayment(ctx, id)
	if err != nil {
		return core.ContractPayment{}, err
	}
	p.Record = existing.Record
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.ContractPayment{}, err
	}
	if err := s.checkPaymentParties(ctx, p, existing); err != nil {
		return core.ContractPayment{}, err
	}
	p.Contract = core.RefTo[core.Contract](p.Contract.ID)
	p.Driver = core.RefTo[core.Driver](p.Driver.ID)
	p.Stamp(s.now())
	if err := s.storage.UpdateContractPayment(ctx, p); err != nil {
		return core.ContractPayment{}, fmt.Errorf("update contract payment: %w", err)
	}
	s.notify(ctx, core.ResourceContractPayments, p.ID, amqp.ActionUpdated)

	if err := s.rollUpContract(ctx, p.Contract.ID); err != nil {
		return core.ContractPayment{}, fmt.Errorf("roll up contract: %w", err)
	}
	if previous := existing.Contract.ID; previous != p.Contract.ID {
		if err := s.rollUpContract(ctx, previous); err != nil {
			slog.WarnContext(ctx, "Failed to roll up previous contract",
				"contract_id", previous, "error", err)
		}
	}
	return s.populateContractPayment(ctx, p), nil
}

func (s *Service) DeleteContractPayment(ctx context.Context, id string) error {
	existing, err := s.storage.GetContractPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteContractPayment(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, core.ResourceContractPayments, id, amqp.ActionDeleted)
	if err := s.rollUpContract(ctx, existing.Contract.ID); err != nil {
		slog.WarnContext(ctx, "Failed to roll up contract after payment delete",
			"contract_id", existing.Contract.ID, "error", err)
	}
	return nil
}

func (s *Service) checkPaymentParties(ctx context.Context, p, previous core.ContractPayment) error {
	if p.Contract.ID != previous.Contract.ID || previous.ID == "" {
		_, err := s.storage.GetContract(ctx, p.Contract.ID)
		if err := mustExist(err, "contract", p.Contract.ID); err != nil {
			return err
		}
	}
	if p.Driver.ID != previous.Driver.ID || previous.ID == "" {
		return s.checkDriver(ctx, p.Driver.ID)
	}
	return nil
}

func (s *Service) populateContractPayment(ctx context.Context, p core.ContractPayment) core.ContractPayment {
	if c, err := s.storage.GetContract(ctx, p.Contract.ID); err == nil {
		p.Contract = core.Populated(c.ID, c)
	}
	if d, err := s.storage.GetDriver(ctx, p.Driver.ID); err == nil {
		p.Driver = core.Populated(d.ID, d)
	}
	return p
}
