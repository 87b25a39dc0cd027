package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rentdesk/internal/core"
)

func samplePayment() core.Payment {
	tenant := core.Tenant{TenantName: "Akosua", TenantPhone: "0244"}
	tenant.ID = "t1"
	p := core.Payment{
		Tenant:     core.Populated("t1", tenant),
		AmountPaid: core.MustMoney("1250.50"),
		Method:     core.MethodBankTransfer,
		Date:       core.NewDate(2024, 3, 9),
		Status:     core.PaymentCompleted,
	}
	p.ID = "p1"
	return p
}

func TestRowResolvesNestedPaths(t *testing.T) {
	fields, ok := Fields(core.ResourcePayments)
	require.True(t, ok)

	row, err := Row(samplePayment(), fields)
	require.NoError(t, err)
	assert.Equal(t, []any{"Akosua", 1250.5, "Bank Transfer", "09 Mar 2024", "Completed"}, row)
}

func TestRowUnpopulatedReference(t *testing.T) {
	p := samplePayment()
	p.Tenant = core.RefTo[core.Tenant]("t1")

	row, err := Row(p, []Field{{"tenant.tenantName", "Tenant"}, {"tenant", "Tenant Id"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"", "t1"}, row)
}

func TestCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, ""},
		{"plain string", "Occupied", "Occupied"},
		{"date", "2024-01-31", "31 Jan 2024"},
		{"timestamp", "2024-01-31T10:00:00Z", "31 Jan 2024"},
		{"looks like date but is not", "2024-99-99", "2024-99-99"},
		{"array", []any{"brakes", "tyres"}, "brakes, tyres"},
		{"empty array", []any{}, ""},
		{"bool", true, "Yes"},
		{"object with id", map[string]any{"_id": "x1"}, "x1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.in))
		})
	}
}

func TestMirrorFieldsStartWithID(t *testing.T) {
	for _, r := range core.ExportableResources {
		fields, ok := MirrorFields(r)
		require.True(t, ok, r)
		assert.Equal(t, "_id", fields[0].Path, r)
	}
	_, ok := MirrorFields(core.ResourceUsers)
	assert.False(t, ok, "users are never exported")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Tenants_List.xlsx", FileName("Tenants_List"))
	assert.Equal(t, "Vehicle_Maintenance.xlsx", FileName(" Vehicle Maintenance "))
	assert.Equal(t, "export.xlsx", FileName("../"))
	assert.Equal(t, "Contract_Payments_List", DefaultName(core.ResourceContractPayments))
}

func TestWriteXLSX(t *testing.T) {
	fields, _ := Fields(core.ResourcePayments)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []any{samplePayment(), samplePayment()}, fields))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Labels(fields), rows[0])
	assert.Equal(t, "Akosua", rows[1][0])
	assert.Equal(t, "09 Mar 2024", rows[2][3])
}
