package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"rentdesk/internal/core"
)

// ExpiryWindowDays is how far ahead leases and contracts count as expiring.
const ExpiryWindowDays = 30

type (
	ApartmentSummary struct {
		Total          int        `json:"total"`
		Occupied       int        `json:"occupied"`
		Available      int        `json:"available"`
		Maintenance    int        `json:"maintenance"`
		MonthlyRevenue core.Money `json:"monthlyRevenue"`
	}

	TenantSummary struct {
		Total          int `json:"total"`
		Active         int `json:"active"`
		ExpiringLeases int `json:"expiringLeases"`
	}

	ContractSummary struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Expiring int `json:"expiring"`
		Overdue  int `json:"overdue"`
	}

	// Summary holds the dashboard counters.
	Summary struct {
		AsOf            core.Date        `json:"asOf"`
		Apartments      ApartmentSummary `json:"apartments"`
		Tenants         TenantSummary    `json:"tenants"`
		Vehicles        int              `json:"vehicles"`
		Drivers         int              `json:"drivers"`
		Contracts       ContractSummary  `json:"contracts"`
		ContractRevenue core.Money       `json:"contractRevenue"`
	}
)

// Summary reads every table concurrently and computes the dashboard counters.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	var (
		apartments []core.Apartment
		tenants    []core.Tenant
		vehicles   []core.Vehicle
		drivers    []core.Driver
		contracts  []core.Contract
		revenue    core.Money
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { apartments, err = s.storage.ListApartments(gctx); return })
	g.Go(func() (err error) { tenants, err = s.storage.ListTenants(gctx); return })
	g.Go(func() (err error) { vehicles, err = s.storage.ListVehicles(gctx); return })
	g.Go(func() (err error) { drivers, err = s.storage.ListDrivers(gctx); return })
	g.Go(func() (err error) { contracts, err = s.storage.ListContracts(gctx); return })
	g.Go(func() (err error) { revenue, err = s.storage.SumAllContractPayments(gctx); return })
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		AsOf:            core.DateOf(now),
		Vehicles:        len(vehicles),
		Drivers:         len(drivers),
		ContractRevenue: revenue,
	}

	sum.Apartments.Total = len(apartments)
	for _, a := range apartments {
		switch a.Status {
		case core.ApartmentOccupied:
			sum.Apartments.Occupied++
			sum.Apartments.MonthlyRevenue = sum.Apartments.MonthlyRevenue.Add(a.Price)
		case core.ApartmentAvailable:
			sum.Apartments.Available++
		case core.ApartmentMaintenance:
			sum.Apartments.Maintenance++
		}
	}

	sum.Tenants.Total = len(tenants)
	for _, t := range tenants {
		if t.Status == core.TenantActive {
			sum.Tenants.Active++
		}
		if t.LeaseExpiringWithin(now, ExpiryWindowDays) {
			sum.Tenants.ExpiringLeases++
		}
	}

	sum.Contracts.Total = len(contracts)
	for _, c := range contracts {
		if c.Status != core.ContractActive {
			continue
		}
		sum.Contracts.Active++
		if c.ExpiringWithin(now, ExpiryWindowDays) {
			sum.Contracts.Expiring++
		}
		if c.StandingAt(now).Overdue {
			sum.Contracts.Overdue++
		}
	}
	return sum, nil
}

// OverdueContracts lists active contracts in arrears with their standing.
func (s *Service) OverdueContracts(ctx context.Context) ([]OverdueContract, error) {
	contracts, err := s.storage.ListContractsByStatus(ctx, core.ContractActive)
	if err != nil {
		return nil, err
	}
	contracts, err = s.populateContracts(ctx, contracts)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []OverdueContract{}
	for _, c := range contracts {
		if st := c.StandingAt(now); st.Overdue {
			out = append(out, OverdueContract{Contract: c, Standing: st})
		}
	}
	return out, nil
}

// OverdueContract pairs a contract with how it stands today.
type OverdueContract struct {
	Contract core.Contract `json:"contract"`
	Standing core.Standing `json:"standing"`
}
