package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/amqp"
	"rentdesk/internal/auth"
	"rentdesk/internal/core"
	"rentdesk/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
}

func (f *fakePublisher) PublishRecordEvent(_ context.Context, e *amqp.RecordEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) actions(resource string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.Resource == resource {
			out = append(out, e.Action)
		}
	}
	return out
}

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "rentdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	pub := &fakePublisher{}
	svc := New(repo, pub)
	svc.now = func() time.Time { return testNow }
	return svc, pub
}

func seedFleet(t *testing.T, svc *Service) (core.Driver, core.Vehicle) {
	t.Helper()
	ctx := context.Background()
	d, err := svc.CreateDriver(ctx, core.Driver{FirstName: "Kofi", LastName: "Mensah", Phone: "0244000000", LicenseNumber: "L-1", IsActive: true})
	require.NoError(t, err)
	v, err := svc.CreateVehicle(ctx, core.Vehicle{Make: "Toyota", Model: "Corolla", VehicleRegNum: "gr 123-24", Driver: core.RefTo[core.Driver](d.ID)})
	require.NoError(t, err)
	return d, v
}

func TestApartmentTenancy(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	apt, err := svc.CreateApartment(ctx, core.Apartment{Title: "Unit 4", Location: "Osu", Price: core.MustMoney("1200")})
	require.NoError(t, err)
	assert.Equal(t, core.ApartmentAvailable, apt.Status)
	assert.Empty(t, apt.Tenants)

	tenant, err := svc.CreateTenant(ctx, core.Tenant{
		TenantName:       "Ama",
		TenantPhone:      "0200000000",
		MonthlyPrice:     core.MustMoney("1200"),
		NoOfMonthsRented: 6,
		Apartment:        core.RefTo[core.Apartment](apt.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, core.MustMoney("7200"), tenant.TotalAmount)
	require.NotNil(t, tenant.Apartment.Doc)
	assert.Equal(t, "Unit 4", tenant.Apartment.Doc.Title)

	got, err := svc.GetApartment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tenant.ID}, got.Tenants)
	assert.Equal(t, 1, got.TenantCount)

	list, err := svc.ListApartments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].TenantCount)

	tenants, err := svc.ApartmentTenants(ctx, apt.ID)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, apt.ID, tenants[0].Apartment.ID)

	require.NoError(t, svc.DeleteApartment(ctx, apt.ID))
	detached, err := svc.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, detached.Apartment.IsZero())

	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionDeleted}, pub.actions(core.ResourceApartments))
	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionUpdated}, pub.actions(core.ResourceTenants))

	_, err = svc.ApartmentTenants(ctx, apt.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReferencesMustExist(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, core.Tenant{TenantName: "Ama", TenantPhone: "1", Apartment: core.RefTo[core.Apartment]("missing")})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.CreatePayment(ctx, core.Payment{Tenant: core.RefTo[core.Tenant]("missing"), AmountPaid: core.MustMoney("10"), Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.CreateMaintenance(ctx, core.MaintenanceRecord{Vehicle: core.RefTo[core.Vehicle]("missing"), MaintenanceDate: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.UpdateDriver(ctx, "missing", core.Driver{FirstName: "a", LastName: "b", Phone: "c", LicenseNumber: "d"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPaymentIsPopulated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, core.Tenant{TenantName: "Yaw", TenantPhone: "0555"})
	require.NoError(t, err)
	p, err := svc.CreatePayment(ctx, core.Payment{Tenant: core.RefTo[core.Tenant](tenant.ID), AmountPaid: core.MustMoney("350.50"), Date: core.NewDate(2024, 1, 5)})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentCompleted, p.Status)
	assert.Equal(t, core.MethodCash, p.Method)

	payments, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	b, err := json.Marshal(payments[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tenantName":"Yaw"`)
}

func TestContractPaymentRollUp(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	driver, vehicle := seedFleet(t, svc)

	c, err := svc.CreateContract(ctx, core.Contract{
		Driver:           core.RefTo[core.Driver](driver.ID),
		Vehicle:          core.RefTo[core.Vehicle](vehicle.ID),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 2, 1),
		PaymentAmount:    core.MustMoney("500"),
		PaymentFrequency: core.FrequencyMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, core.ContractActive, c.Status)
	assert.Equal(t, core.TermsFixed, c.PaymentTerms)
	assert.Equal(t, core.MustMoney("1000"), c.ExpectedTotalPaymentAmount)
	assert.Equal(t, core.MustMoney("1000"), c.BalanceLeft)
	require.NotNil(t, c.Driver.Doc)
	assert.Equal(t, "Kofi Mensah", c.Driver.Doc.FullName())

	pay := func(amount string) core.ContractPayment {
		p, err := svc.CreateContractPayment(ctx, core.ContractPayment{
			Contract:    core.RefTo[core.Contract](c.ID),
			Driver:      core.RefTo[core.Driver](driver.ID),
			Amount:      core.MustMoney(amount),
			PaymentDate: core.NewDate(2024, 1, 5),
		})
		require.NoError(t, err)
		return p
	}
	first := pay("300")
	assert.Equal(t, core.ContractMethodCash, first.PaymentMethod)
	pay("200")

	got, err := svc.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MustMoney("500"), got.TotalAmountPaid)
	assert.Equal(t, core.MustMoney("500"), got.BalanceLeft)

	first.Amount = core.MustMoney("100")
	_, err = svc.UpdateContractPayment(ctx, first.ID, first)
	require.NoError(t, err)
	got, _ = svc.GetContract(ctx, c.ID)
	assert.Equal(t, core.MustMoney("300"), got.TotalAmountPaid)

	require.NoError(t, svc.DeleteContractPayment(ctx, first.ID))
	got, _ = svc.GetContract(ctx, c.ID)
	assert.Equal(t, core.MustMoney("200"), got.TotalAmountPaid)
	assert.Equal(t, core.MustMoney("800"), got.BalanceLeft)

	// an entered total is overridden once payments exist
	got.TotalAmountPaid = core.MustMoney("999")
	updated, err := svc.UpdateContract(ctx, c.ID, got)
	require.NoError(t, err)
	assert.Equal(t, core.MustMoney("200"), updated.TotalAmountPaid)

	assert.Contains(t, pub.actions(core.ResourceContracts), amqp.ActionUpdated)
	assert.Len(t, pub.actions(core.ResourceContractPayments), 4)
}

func TestDeletesKeepReferencesIntact(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	driver, vehicle := seedFleet(t, svc)

	m, err := svc.CreateMaintenance(ctx, core.MaintenanceRecord{Vehicle: core.RefTo[core.Vehicle](vehicle.ID), MaintenanceDate: core.NewDate(2024, 1, 3)})
	require.NoError(t, err)
	c, err := svc.CreateContract(ctx, core.Contract{
		Driver:           core.RefTo[core.Driver](driver.ID),
		Vehicle:          core.RefTo[core.Vehicle](vehicle.ID),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 2, 1),
		PaymentAmount:    core.MustMoney("500"),
		PaymentFrequency: core.FrequencyMonthly,
	})
	require.NoError(t, err)
	p, err := svc.CreateContractPayment(ctx, core.ContractPayment{
		Contract:    core.RefTo[core.Contract](c.ID),
		Driver:      core.RefTo[core.Driver](driver.ID),
		Amount:      core.MustMoney("250"),
		PaymentDate: core.NewDate(2024, 1, 5),
	})
	require.NoError(t, err)

	// a contract in place blocks both of its parties
	assert.ErrorIs(t, svc.DeleteDriver(ctx, driver.ID), ErrInUse)
	assert.ErrorIs(t, svc.DeleteVehicle(ctx, vehicle.ID), ErrInUse)
	_, err = svc.GetDriver(ctx, driver.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContract(ctx, c.ID))
	_, err = svc.GetContractPayment(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionDeleted}, pub.actions(core.ResourceContractPayments))

	// with the contract gone the vehicle goes too, taking its maintenance
	require.NoError(t, svc.DeleteVehicle(ctx, vehicle.ID))
	_, err = svc.GetMaintenance(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionDeleted}, pub.actions(core.ResourceMaintenance))

	spare, err := svc.CreateVehicle(ctx, core.Vehicle{Make: "Kia", Model: "Rio", VehicleRegNum: "GT 55-24", Driver: core.RefTo[core.Driver](driver.ID)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDriver(ctx, driver.ID))
	unassigned, err := svc.GetVehicle(ctx, spare.ID)
	require.NoError(t, err)
	assert.True(t, unassigned.Driver.IsZero())
	assert.Equal(t, amqp.ActionUpdated, pub.actions(core.ResourceVehicles)[len(pub.actions(core.ResourceVehicles))-1])

	assert.ErrorIs(t, svc.DeleteDriver(ctx, driver.ID), storage.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteContract(ctx, c.ID), storage.ErrNotFound)
}

func TestDeleteTenantRemovesPayments(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, core.Tenant{TenantName: "Esi", TenantPhone: "0244"})
	require.NoError(t, err)
	p, err := svc.CreatePayment(ctx, core.Payment{Tenant: core.RefTo[core.Tenant](tenant.ID), AmountPaid: core.MustMoney("80"), Date: core.NewDate(2024, 1, 2)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTenant(ctx, tenant.ID))
	_, err = svc.GetPayment(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionDeleted}, pub.actions(core.ResourcePayments))
}

func TestUpdateKeepsUnchangedReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// rows written before references were enforced may name missing records
	orphan := core.Contract{
		Driver:           core.RefTo[core.Driver]("gone-driver"),
		Vehicle:          core.RefTo[core.Vehicle]("gone-vehicle"),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 2, 1),
		PaymentAmount:    core.MustMoney("500"),
		PaymentFrequency: core.FrequencyMonthly,
	}
	orphan.Normalize()
	orphan.Stamp(testNow)
	require.NoError(t, svc.Storage().CreateContract(ctx, orphan))

	orphan.Status = core.ContractTerminated
	updated, err := svc.UpdateContract(ctx, orphan.ID, orphan)
	require.NoError(t, err)
	assert.Equal(t, core.ContractTerminated, updated.Status)

	orphan.Driver = core.RefTo[core.Driver]("another-missing-driver")
	_, err = svc.UpdateContract(ctx, orphan.ID, orphan)
	assert.ErrorIs(t, err, core.ErrValidation)

	payment := core.Payment{Tenant: core.RefTo[core.Tenant]("gone-tenant"), AmountPaid: core.MustMoney("10"), Date: core.NewDate(2024, 1, 1)}
	payment.Normalize()
	payment.Stamp(testNow)
	require.NoError(t, svc.Storage().CreatePayment(ctx, payment))
	payment.AmountPaid = core.MustMoney("12")
	_, err = svc.UpdatePayment(ctx, payment.ID, payment)
	require.NoError(t, err)
}

func TestQuoteContract(t *testing.T) {
	q := QuoteContract(core.Contract{
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 1, 31),
		PaymentTerms:     core.TermsFixed,
		PaymentAmount:    core.MustMoney("20"),
		PaymentFrequency: core.FrequencyDaily,
		TotalAmountPaid:  core.MustMoney("100"),
	}, testNow)
	assert.Equal(t, 31, q.Periods)
	assert.Equal(t, core.MustMoney("620"), q.ExpectedTotalPaymentAmount)
	assert.Equal(t, core.MustMoney("520"), q.BalanceLeft)
	assert.Equal(t, 10, q.Standing.PeriodsElapsed)
	assert.True(t, q.Standing.Overdue)
}

func TestUsers(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedAdmin(ctx, "Root", "Root@Example.com", "supersecret")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.SeedAdmin(ctx, "Root", "other@example.com", "supersecret")
	require.NoError(t, err)
	assert.False(t, created, "seeding only happens on an empty table")

	admin, err := svc.Authenticate(ctx, "root@example.com", "supersecret")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	_, err = svc.Authenticate(ctx, "root@example.com", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@example.com", "supersecret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	staff, err := svc.CreateUser(ctx, core.UserInput{Name: "Esi", Email: "esi@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, core.RoleStaff, staff.Role)

	_, err = svc.CreateUser(ctx, core.UserInput{Name: "Dup", Email: "ESI@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateUser(ctx, core.UserInput{Name: "Short", Email: "s@example.com", Password: "x"})
	assert.ErrorIs(t, err, core.ErrValidation)

	updated, err := svc.UpdateUser(ctx, core.UserInput{ID: staff.ID, Name: "Esi B", Email: "esi@example.com", Role: core.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, core.RoleManager, updated.Role)
	_, err = svc.Authenticate(ctx, "esi@example.com", "password1")
	assert.NoError(t, err, "blank password keeps the old one")

	_, err = svc.UpdateUser(ctx, core.UserInput{ID: staff.ID, Name: "Esi", Email: "root@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.ID), ErrForbidden)
	require.NoError(t, svc.DeleteUser(ctx, staff.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, staff.ID), storage.ErrNotFound)

	assert.Empty(t, pub.actions(core.ResourceUsers), "users are never mirrored")
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	d, err := svc.CreateDriver(context.Background(), core.Driver{FirstName: "A", LastName: "B", Phone: "1", LicenseNumber: "2"})
	require.NoError(t, err)

	stats, err := svc.Storage().GetSyncQueueStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending)
	assert.NotEmpty(t, d.ID)
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	driver, vehicle := seedFleet(t, svc)

	_, err := svc.CreateApartment(ctx, core.Apartment{Title: "A", Location: "X", Price: core.MustMoney("1000"), Status: core.ApartmentOccupied})
	require.NoError(t, err)
	_, err = svc.CreateApartment(ctx, core.Apartment{Title: "B", Location: "X", Price: core.MustMoney("800"), Status: core.ApartmentOccupied})
	require.NoError(t, err)
	_, err = svc.CreateApartment(ctx, core.Apartment{Title: "C", Location: "X", Price: core.MustMoney("500")})
	require.NoError(t, err)

	_, err = svc.CreateTenant(ctx, core.Tenant{TenantName: "T1", TenantPhone: "1", ExpirationDate: core.NewDate(2024, 1, 20)})
	require.NoError(t, err)
	_, err = svc.CreateTenant(ctx, core.Tenant{TenantName: "T2", TenantPhone: "2", ExpirationDate: core.NewDate(2024, 12, 31)})
	require.NoError(t, err)

	_, err = svc.CreateContract(ctx, core.Contract{
		Driver:           core.RefTo[core.Driver](driver.ID),
		Vehicle:          core.RefTo[core.Vehicle](vehicle.ID),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 1, 31),
		PaymentAmount:    core.MustMoney("50"),
		PaymentFrequency: core.FrequencyWeekly,
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Apartments.Total)
	assert.Equal(t, 2, sum.Apartments.Occupied)
	assert.Equal(t, 1, sum.Apartments.Available)
	assert.Equal(t, core.MustMoney("1800"), sum.Apartments.MonthlyRevenue)
	assert.Equal(t, 2, sum.Tenants.Active)
	assert.Equal(t, 1, sum.Tenants.ExpiringLeases)
	assert.Equal(t, 1, sum.Vehicles)
	assert.Equal(t, 1, sum.Contracts.Active)
	assert.Equal(t, 1, sum.Contracts.Expiring)
	assert.Equal(t, 1, sum.Contracts.Overdue)
	assert.True(t, sum.ContractRevenue.IsZero())

	overdue, err := svc.OverdueContracts(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, core.MustMoney("100"), overdue[0].Standing.Arrears)
}

func TestExpiryProcessor(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	driver, vehicle := seedFleet(t, svc)

	ended, err := svc.CreateContract(ctx, core.Contract{
		Driver:           core.RefTo[core.Driver](driver.ID),
		Vehicle:          core.RefTo[core.Vehicle](vehicle.ID),
		StartDate:        core.NewDate(2023, 12, 1),
		EndDate:          core.NewDate(2024, 1, 9),
		PaymentAmount:    core.MustMoney("10"),
		PaymentFrequency: core.FrequencyDaily,
	})
	require.NoError(t, err)
	running, err := svc.CreateContract(ctx, core.Contract{
		Driver:           core.RefTo[core.Driver](driver.ID),
		Vehicle:          core.RefTo[core.Vehicle](vehicle.ID),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 1, 10),
		PaymentAmount:    core.MustMoney("10"),
		PaymentFrequency: core.FrequencyDaily,
	})
	require.NoError(t, err)
	lapsed, err := svc.CreateTenant(ctx, core.Tenant{TenantName: "Old", TenantPhone: "1", ExpirationDate: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	res, err := NewExpiryProcessor(svc).ProcessExpired(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, ExpiryResult{ContractsCompleted: 1, TenantsDeactivated: 1}, res)

	got, _ := svc.GetContract(ctx, ended.ID)
	assert.Equal(t, core.ContractCompleted, got.Status)
	got, _ = svc.GetContract(ctx, running.ID)
	assert.Equal(t, core.ContractActive, got.Status, "a contract ending today is still running")
	tenant, _ := svc.GetTenant(ctx, lapsed.ID)
	assert.Equal(t, core.TenantInactive, tenant.Status)
	assert.Contains(t, pub.actions(core.ResourceContracts), amqp.ActionUpdated)

	res, err = NewExpiryProcessor(svc).ProcessExpired(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, res.ContractsCompleted+res.TenantsDeactivated, "second run is a no-op")

	_, err = NewExpiryProcessor(nil).ProcessExpired(ctx, testNow)
	assert.Error(t, err)
}

func TestRecordsAndRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	driver, _ := seedFleet(t, svc)

	for _, r := range core.ExportableResources {
		_, err := svc.Records(ctx, r)
		assert.NoError(t, err, r)
	}
	_, err := svc.Records(ctx, core.ResourceUsers)
	assert.Error(t, err)

	rec, err := svc.Record(ctx, core.ResourceDrivers, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, rec.(core.Driver).ID)

	_, err = svc.Record(ctx, core.ResourceDrivers, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
