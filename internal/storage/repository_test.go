package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "rentdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var stamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	require.NoError(t, err)
	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)
	assert.Equal(t, v1, v2)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := core.User{Name: "Ama", Email: "Ama@Example.com", Role: core.RoleAdmin, PasswordHash: "hash"}
	u.Stamp(stamp)
	require.NoError(t, repo.CreateUser(ctx, u))

	got, err := repo.GetUserByEmail(ctx, "AMA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "ama@example.com", got.Email)
	assert.Equal(t, core.RoleAdmin, got.Role)
	assert.True(t, got.CreatedAt.Equal(stamp))

	dup := core.User{Name: "Other", Email: "ama@example.com", Role: core.RoleStaff, PasswordHash: "x"}
	dup.Stamp(stamp)
	assert.Error(t, repo.CreateUser(ctx, dup), "email must be unique")

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got.Phone = "0200000000"
	require.NoError(t, repo.UpdateUser(ctx, got))
	again, err := repo.GetUser(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "0200000000", again.Phone)

	require.NoError(t, repo.DeleteUser(ctx, got.ID))
	_, err = repo.GetUser(ctx, got.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteUser(ctx, got.ID), ErrNotFound)
}

func TestApartmentsAndTenants(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	apt := core.Apartment{Title: "Block A", Location: "East Legon", Price: core.MustMoney("1500"), Status: core.ApartmentOccupied}
	apt.Stamp(stamp)
	require.NoError(t, repo.CreateApartment(ctx, apt))

	tenant := core.Tenant{
		TenantName:       "Kojo",
		TenantPhone:      "0241111111",
		RentedDate:       core.NewDate(2024, 1, 1),
		ExpirationDate:   core.NewDate(2024, 12, 31),
		NoOfMonthsRented: 12,
		MonthlyPrice:     core.MustMoney("1500"),
		TotalAmount:      core.MustMoney("18000"),
		Status:           core.TenantActive,
		Apartment:        core.RefTo[core.Apartment](apt.ID),
	}
	tenant.Stamp(stamp)
	require.NoError(t, repo.CreateTenant(ctx, tenant))

	byApt, err := repo.TenantIDsByApartment(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tenant.ID}, byApt[apt.ID])

	got, err := repo.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", got.ExpirationDate.String())
	assert.Equal(t, apt.ID, got.Apartment.ID)
	assert.Equal(t, int64(1800000), got.TotalAmount.Cents)

	detached, err := repo.DetachTenants(ctx, apt.ID, stamp.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{tenant.ID}, detached)

	got, err = repo.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, got.Apartment.IsZero())

	pay := core.Payment{Tenant: core.RefTo[core.Tenant](tenant.ID), AmountPaid: core.MustMoney("750.25"),
		Method: core.MethodMobileMoney, Date: core.NewDate(2024, 2, 1), Status: core.PaymentPartial}
	pay.Stamp(stamp)
	require.NoError(t, repo.CreatePayment(ctx, pay))

	payments, err := repo.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, core.MethodMobileMoney, payments[0].Method)
	assert.Equal(t, "2024-02-01", payments[0].Date.String())

	pay.ID = "missing"
	assert.ErrorIs(t, repo.UpdatePayment(ctx, pay), ErrNotFound)
}

func TestFleet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	d := core.Driver{FirstName: "Yaw", LastName: "Boateng", Phone: "0209", LicenseNumber: "DL-1", IsActive: true}
	d.Stamp(stamp)
	require.NoError(t, repo.CreateDriver(ctx, d))

	v := core.Vehicle{
		Make: "Toyota", Model: "Corolla", VehicleRegNum: "GR-1234-24",
		MaintenanceHist: []core.MaintenanceEntry{{Hist: "oil", Cost: core.MustMoney("80"), Date: core.NewDate(2024, 3, 1)}},
		Driver:          core.RefTo[core.Driver](d.ID),
	}
	v.Stamp(stamp)
	require.NoError(t, repo.CreateVehicle(ctx, v))

	gotV, err := repo.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, gotV.MaintenanceHist, 1)
	assert.Equal(t, "oil", gotV.MaintenanceHist[0].Hist)
	assert.Equal(t, d.ID, gotV.Driver.ID)

	m := core.MaintenanceRecord{Vehicle: core.RefTo[core.Vehicle](v.ID), MaintenanceDate: core.NewDate(2024, 4, 1),
		Cost: core.MustMoney("300"), Issue: []string{"brakes", "tyres"}, Status: core.MaintenanceOngoing}
	m.Stamp(stamp)
	require.NoError(t, repo.CreateMaintenance(ctx, m))
	records, err := repo.ListMaintenance(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"brakes", "tyres"}, records[0].Issue)

	gotD, err := repo.GetDriver(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, gotD.IsActive)
}

func TestContractsAndPayments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	c := core.Contract{
		Driver:           core.RefTo[core.Driver]("d1"),
		Vehicle:          core.RefTo[core.Vehicle]("v1"),
		StartDate:        core.NewDate(2024, 1, 1),
		EndDate:          core.NewDate(2024, 2, 1),
		PaymentAmount:    core.MustMoney("500"),
		PaymentFrequency: core.FrequencyMonthly,
	}
	c.Normalize()
	c.Stamp(stamp)
	require.NoError(t, repo.CreateContract(ctx, c))

	for _, amount := range []string{"200", "150.50"} {
		p := core.ContractPayment{Contract: core.RefTo[core.Contract](c.ID), Driver: core.RefTo[core.Driver]("d1"),
			Amount: core.MustMoney(amount), PaymentDate: core.NewDate(2024, 1, 15), PaymentMethod: core.ContractMethodCash}
		p.Stamp(stamp)
		require.NoError(t, repo.CreateContractPayment(ctx, p))
	}

	sum, err := repo.SumContractPayments(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MustMoney("350.50"), sum)

	empty, err := repo.SumContractPayments(ctx, "nope")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	got, err := repo.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.MustMoney("1000"), got.ExpectedTotalPaymentAmount)
	assert.Equal(t, core.FrequencyMonthly, got.PaymentFrequency)

	active, err := repo.ListContractsByStatus(ctx, core.ContractActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDeleteReferences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	d := core.Driver{FirstName: "Abena", LastName: "Owusu", Phone: "0244", LicenseNumber: "DL-9"}
	d.Stamp(stamp)
	require.NoError(t, repo.CreateDriver(ctx, d))
	var vehicleIDs []string
	for _, reg := range []string{"GR-1", "GR-2"} {
		v := core.Vehicle{Make: "Honda", Model: "Fit", VehicleRegNum: reg, Driver: core.RefTo[core.Driver](d.ID)}
		v.Stamp(stamp)
		require.NoError(t, repo.CreateVehicle(ctx, v))
		vehicleIDs = append(vehicleIDs, v.ID)
	}

	c := core.Contract{Driver: core.RefTo[core.Driver](d.ID), Vehicle: core.RefTo[core.Vehicle](vehicleIDs[0]),
		StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 2, 1),
		PaymentAmount: core.MustMoney("100"), PaymentFrequency: core.FrequencyMonthly}
	c.Normalize()
	c.Stamp(stamp)
	require.NoError(t, repo.CreateContract(ctx, c))
	p := core.ContractPayment{Contract: core.RefTo[core.Contract](c.ID), Driver: core.RefTo[core.Driver](d.ID),
		Amount: core.MustMoney("40"), PaymentDate: core.NewDate(2024, 1, 9), PaymentMethod: core.ContractMethodCash}
	p.Stamp(stamp)
	require.NoError(t, repo.CreateContractPayment(ctx, p))

	ids, err := repo.Referencing(ctx, ContractsByDriver, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids)
	none, err := repo.Referencing(ctx, ContractsByDriver, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	removed, err := repo.DeleteWithDependents(ctx, "contracts", c.ID, ContractPaymentsByContract)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, removed[ContractPaymentsByContract])
	_, err = repo.GetContractPayment(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.DeleteWithDependents(ctx, "contracts", c.ID, ContractPaymentsByContract)
	assert.ErrorIs(t, err, ErrNotFound)

	later := stamp.Add(time.Hour)
	detached, err := repo.DeleteDetaching(ctx, "drivers", d.ID, VehiclesByDriver, later)
	require.NoError(t, err)
	assert.ElementsMatch(t, vehicleIDs, detached)
	for _, id := range vehicleIDs {
		v, err := repo.GetVehicle(ctx, id)
		require.NoError(t, err)
		assert.True(t, v.Driver.IsZero())
		assert.True(t, later.Equal(v.UpdatedAt))
	}
	_, err = repo.GetDriver(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// a missing owner rolls back the detach
	v := core.Vehicle{Make: "Honda", Model: "Jazz", VehicleRegNum: "GR-3", Driver: core.RefTo[core.Driver]("ghost")}
	v.Stamp(stamp)
	require.NoError(t, repo.CreateVehicle(ctx, v))
	_, err = repo.DeleteDetaching(ctx, "drivers", "ghost", VehiclesByDriver, later)
	assert.ErrorIs(t, err, ErrNotFound)
	kept, err := repo.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "ghost", kept.Driver.ID)
}

func TestSyncQueue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.EnqueueSync(ctx, "tenants", "t1", SyncOpSync)
	require.NoError(t, err)
	second, err := repo.EnqueueSync(ctx, "tenants", "t2", SyncOpDelete)
	require.NoError(t, err)

	batch, err := repo.DequeueSyncBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, first, batch[0].ID)

	require.NoError(t, repo.MarkSyncProcessing(ctx, first))
	assert.ErrorIs(t, repo.MarkSyncProcessing(ctx, first), ErrNotFound, "second claim must fail")

	require.NoError(t, repo.MarkSyncComplete(ctx, first))
	require.NoError(t, repo.IncrementSyncAttempt(ctx, second, "boom"))

	item, err := repo.GetSyncItem(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, SyncPending, item.Status)
	assert.Equal(t, int64(1), item.Attempts)
	assert.Equal(t, "boom", item.LastError)

	require.NoError(t, repo.MarkSyncFailed(ctx, second, "gave up"))
	stats, err := repo.GetSyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncQueueStats{Completed: 1, Failed: 1}, stats)

	n, err := repo.RetryFailedSyncs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.CleanupCompletedSyncs(ctx, time.Now().Add(time.Minute)))
	stats, err = repo.GetSyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncQueueStats{Pending: 1}, stats)
}
