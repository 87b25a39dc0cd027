// Package export flattens records into spreadsheet rows and writes xlsx files.
package export

import "rentdesk/internal/core"

// Field is one spreadsheet column: a dot path into the record's JSON form
// and the header label.
type Field struct {
	Path  string
	Label string
}

var fieldSets = map[string][]Field{
	core.ResourceApartments: {
		{"title", "Title"},
		{"price", "Renting Price"},
		{"location", "Location"},
		{"description", "Description"},
		{"status", "Status"},
		{"tenantCount", "Tenant Count"},
	},
	core.ResourceTenants: {
		{"tenantName", "Tenant Name"},
		{"tenantPhone", "Phone"},
		{"roomDescription", "Room Description"},
		{"rentedDate", "Rented Date"},
		{"expirationDate", "Rent Expiry Date"},
		{"noOfMonthsRented", "No of Months Rented"},
		{"amountPaidOnUtility", "Utility"},
		{"monthlyPrice", "Monthly Price"},
		{"status", "Tenant Status"},
		{"totalAmount", "Total Amount"},
		{"apartment.title", "Apartment"},
	},
	core.ResourcePayments: {
		{"tenant.tenantName", "Tenant Name"},
		{"amountPaid", "Amount Paid"},
		{"method", "Payment Method"},
		{"date", "Date"},
		{"status", "Status"},
	},
	core.ResourceVehicles: {
		{"vehicleType", "Vehicle Type"},
		{"make", "Make"},
		{"model", "Model"},
		{"vehicleRegNum", "Registration Number"},
		{"chassisNum", "Chassis Number"},
		{"driver.firstName", "Driver First Name"},
		{"driver.lastName", "Driver Last Name"},
		{"driver.phone", "Driver Contact Details"},
		{"driver.licenseNumber", "License Number"},
		{"driver.licenseExpiry", "License Expiry Date"},
	},
	core.ResourceMaintenance: {
		{"vehicleId.model", "Vehicle Model"},
		{"vehicleId.make", "Vehicle Make"},
		{"maintenanceDate", "Maintenance Date"},
		{"cost", "Maintenance Cost"},
		{"issue", "Issue"},
		{"status", "Status"},
	},
	core.ResourceDrivers: {
		{"firstName", "First Name"},
		{"lastName", "Last Name"},
		{"phone", "Phone"},
		{"address", "Address"},
		{"licenseNumber", "License Number"},
		{"licenseExpiry", "License Expiry Date"},
		{"isActive", "Active"},
	},
	core.ResourceContracts: {
		{"driverId.firstName", "Driver First Name"},
		{"driverId.lastName", "Driver Last Name"},
		{"vehicleId.vehicleRegNum", "Vehicle"},
		{"startDate", "Start Date"},
		{"endDate", "End Date"},
		{"status", "Status"},
		{"paymentTerms", "Payment Terms"},
		{"paymentAmount", "Payment Amount"},
		{"paymentFrequency", "Payment Frequency"},
		{"expectedTotalPaymentAmount", "Expected Total"},
		{"totalAmountPaid", "Total Paid"},
		{"balanceLeft", "Balance Left"},
	},
	core.ResourceContractPayments: {
		{"driverId.firstName", "Driver First Name"},
		{"driverId.lastName", "Driver Last Name"},
		{"contractId.startDate", "Contract Start"},
		{"amount", "Amount"},
		{"paymentDate", "Payment Date"},
		{"paymentMethod", "Payment Method"},
		{"reference", "Reference"},
		{"notes", "Notes"},
	},
}

// Fields returns the export columns for a resource.
func Fields(resource string) ([]Field, bool) {
	f, ok := fieldSets[resource]
	return f, ok
}

// MirrorFields is Fields with the record id prepended, which the
// spreadsheet mirror keys rows on.
func MirrorFields(resource string) ([]Field, bool) {
	f, ok := fieldSets[resource]
	if !ok {
		return nil, false
	}
	return append([]Field{{"_id", "_id"}}, f...), true
}

// Labels returns the header row for fields.
func Labels(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}
