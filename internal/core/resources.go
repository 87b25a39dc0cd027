package core

// Resource names used for exports, mirror tabs and change events.
const (
	ResourceApartments       = "apartments"
	ResourceTenants          = "tenants"
	ResourcePayments         = "payments"
	ResourceVehicles         = "vehicles"
	ResourceMaintenance      = "maintenance"
	ResourceDrivers          = "drivers"
	ResourceContracts        = "contracts"
	ResourceContractPayments = "contract_payments"
	ResourceUsers            = "users"
)

// ExportableResources lists the resources that can be exported and mirrored,
// in dashboard order. Users are deliberately absent.
var ExportableResources = []string{
	ResourceApartments,
	ResourceTenants,
	ResourcePayments,
	ResourceVehicles,
	ResourceMaintenance,
	ResourceDrivers,
	ResourceContracts,
	ResourceContractPayments,
}

// IsExportable reports whether name is one of ExportableResources.
func IsExportable(name string) bool {
	for _, r := range ExportableResources {
		if r == name {
			return true
		}
	}
	return false
}
