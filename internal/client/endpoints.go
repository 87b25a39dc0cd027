package client

import (
	"context"
	"net/http"
	"net/url"

	"rentdesk/internal/core"
	"rentdesk/internal/services"
)

// Message is the body of logout and delete responses.
type Message struct {
	Message string `json:"message"`
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    core.User `json:"user"`
}

func id(s string) string { return url.PathEscape(s) }

// Session

// Login authenticates and keeps the issued token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := call[LoginResult](ctx, c, http.MethodPost, "/api/login",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return res, err
	}
	c.setToken(res.Token)
	return res, nil
}

// Logout clears the server cookie and forgets the token.
func (c *Client) Logout(ctx context.Context) (Message, error) {
	res, err := call[Message](ctx, c, http.MethodPost, "/api/logout", nil)
	c.setToken("")
	return res, err
}

func (c *Client) Profile(ctx context.Context) (core.User, error) {
	return call[core.User](ctx, c, http.MethodGet, "/api/view/profile_info", nil)
}

// Users (admin only)

func (c *Client) ListUsers(ctx context.Context) ([]core.User, error) {
	return call[[]core.User](ctx, c, http.MethodGet, "/api/get/all_users", nil)
}

func (c *Client) CreateUser(ctx context.Context, in core.UserInput) (core.User, error) {
	return call[core.User](ctx, c, http.MethodPost, "/api/add/new_user", in)
}

// ModifyUser updates the user named by in.ID.
func (c *Client) ModifyUser(ctx context.Context, in core.UserInput) (core.User, error) {
	return call[core.User](ctx, c, http.MethodPut, "/api/modify/user/", in)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete/user/"+id(userID), nil)
}

// Tenants

func (c *Client) CreateTenant(ctx context.Context, t core.Tenant) (core.Tenant, error) {
	return call[core.Tenant](ctx, c, http.MethodPost, "/api/create_rent/record", t)
}

func (c *Client) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	return call[[]core.Tenant](ctx, c, http.MethodGet, "/api/view/rent_records", nil)
}

func (c *Client) GetTenant(ctx context.Context, tenantID string) (core.Tenant, error) {
	return call[core.Tenant](ctx, c, http.MethodGet, "/api/view/rent_record/"+id(tenantID), nil)
}

func (c *Client) UpdateTenant(ctx context.Context, tenantID string, t core.Tenant) (core.Tenant, error) {
	return call[core.Tenant](ctx, c, http.MethodPut, "/api/edit/rent_record/"+id(tenantID), t)
}

func (c *Client) DeleteTenant(ctx context.Context, tenantID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete/rent_record/"+id(tenantID), nil)
}

// Apartments

func (c *Client) CreateApartment(ctx context.Context, a core.Apartment) (core.Apartment, error) {
	return call[core.Apartment](ctx, c, http.MethodPost, "/api/add/apartment_property", a)
}

func (c *Client) ListApartments(ctx context.Context) ([]core.Apartment, error) {
	return call[[]core.Apartment](ctx, c, http.MethodGet, "/api/get/apartment_properties", nil)
}

func (c *Client) GetApartment(ctx context.Context, apartmentID string) (core.Apartment, error) {
	return call[core.Apartment](ctx, c, http.MethodGet, "/api/get/apartment_property/"+id(apartmentID), nil)
}

func (c *Client) UpdateApartment(ctx context.Context, apartmentID string, a core.Apartment) (core.Apartment, error) {
	return call[core.Apartment](ctx, c, http.MethodPut, "/api/edit/apartment_property/"+id(apartmentID), a)
}

func (c *Client) DeleteApartment(ctx context.Context, apartmentID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete/apartment_property/"+id(apartmentID), nil)
}

// ApartmentTenants lists the tenants of one apartment.
func (c *Client) ApartmentTenants(ctx context.Context, apartmentID string) ([]core.Tenant, error) {
	return call[[]core.Tenant](ctx, c, http.MethodGet, "/api/get/"+id(apartmentID)+"/apartment_property_tenants", nil)
}

// Rent payments

func (c *Client) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	return call[core.Payment](ctx, c, http.MethodPost, "/api/apartment/add_payment", p)
}

func (c *Client) UpdatePayment(ctx context.Context, paymentID string, p core.Payment) (core.Payment, error) {
	return call[core.Payment](ctx, c, http.MethodPut, "/api/apartment/edit_payment/"+id(paymentID), p)
}

func (c *Client) DeletePayment(ctx context.Context, paymentID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/apartment/delete_payment/"+id(paymentID), nil)
}

func (c *Client) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return call[[]core.Payment](ctx, c, http.MethodGet, "/api/apartment/all_payments", nil)
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (core.Payment, error) {
	return call[core.Payment](ctx, c, http.MethodGet, "/api/apartment/get_payment/"+id(paymentID), nil)
}

// Vehicles

func (c *Client) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	return call[[]core.Vehicle](ctx, c, http.MethodGet, "/api/get/vehicle_records", nil)
}

func (c *Client) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	return call[core.Vehicle](ctx, c, http.MethodPost, "/api/add/vehicle_record", v)
}

func (c *Client) GetVehicle(ctx context.Context, vehicleID string) (core.Vehicle, error) {
	return call[core.Vehicle](ctx, c, http.MethodGet, "/api/get/vehicle_record/"+id(vehicleID), nil)
}

func (c *Client) UpdateVehicle(ctx context.Context, vehicleID string, v core.Vehicle) (core.Vehicle, error) {
	return call[core.Vehicle](ctx, c, http.MethodPut, "/api/edit/vehicle_record/"+id(vehicleID), v)
}

func (c *Client) DeleteVehicle(ctx context.Context, vehicleID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete/vehicle_record/"+id(vehicleID), nil)
}

// Maintenance

func (c *Client) CreateMaintenance(ctx context.Context, m core.MaintenanceRecord) (core.MaintenanceRecord, error) {
	return call[core.MaintenanceRecord](ctx, c, http.MethodPost, "/api/add/maintenance_record", m)
}

func (c *Client) ListMaintenance(ctx context.Context) ([]core.MaintenanceRecord, error) {
	return call[[]core.MaintenanceRecord](ctx, c, http.MethodGet, "/api/get/maintenance_records", nil)
}

func (c *Client) GetMaintenance(ctx context.Context, recordID string) (core.MaintenanceRecord, error) {
	return call[core.MaintenanceRecord](ctx, c, http.MethodGet, "/api/get/vehicle_maintenance_record/"+id(recordID), nil)
}

func (c *Client) UpdateMaintenance(ctx context.Context, recordID string, m core.MaintenanceRecord) (core.MaintenanceRecord, error) {
	return call[core.MaintenanceRecord](ctx, c, http.MethodPut, "/api/edit/vehicle_maintenance/"+id(recordID), m)
}

func (c *Client) DeleteMaintenance(ctx context.Context, recordID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete/maintenance_record/"+id(recordID), nil)
}

// Contracts

func (c *Client) ListContracts(ctx context.Context) ([]core.Contract, error) {
	return call[[]core.Contract](ctx, c, http.MethodGet, "/api/get_all_contracts", nil)
}

func (c *Client) GetContract(ctx context.Context, contractID string) (core.Contract, error) {
	return call[core.Contract](ctx, c, http.MethodGet, "/api/get_contract/"+id(contractID), nil)
}

func (c *Client) CreateContract(ctx context.Context, k core.Contract) (core.Contract, error) {
	return call[core.Contract](ctx, c, http.MethodPost, "/api/create_contract", k)
}

func (c *Client) UpdateContract(ctx context.Context, contractID string, k core.Contract) (core.Contract, error) {
	return call[core.Contract](ctx, c, http.MethodPut, "/api/update_contract/"+id(contractID), k)
}

func (c *Client) DeleteContract(ctx context.Context, contractID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete_contract/"+id(contractID), nil)
}

// Contract payments

func (c *Client) ListContractPayments(ctx context.Context) ([]core.ContractPayment, error) {
	return call[[]core.ContractPayment](ctx, c, http.MethodGet, "/api/get_all_contract_payments", nil)
}

func (c *Client) GetContractPayment(ctx context.Context, paymentID string) (core.ContractPayment, error) {
	return call[core.ContractPayment](ctx, c, http.MethodGet, "/api/get_contract_payment/"+id(paymentID), nil)
}

func (c *Client) CreateContractPayment(ctx context.Context, p core.ContractPayment) (core.ContractPayment, error) {
	return call[core.ContractPayment](ctx, c, http.MethodPost, "/api/create_contract_payment", p)
}

func (c *Client) UpdateContractPayment(ctx context.Context, paymentID string, p core.ContractPayment) (core.ContractPayment, error) {
	return call[core.ContractPayment](ctx, c, http.MethodPut, "/api/update_contract_payment/"+id(paymentID), p)
}

func (c *Client) DeleteContractPayment(ctx context.Context, paymentID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete_contract_payment/"+id(paymentID), nil)
}

// Drivers

func (c *Client) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	return call[[]core.Driver](ctx, c, http.MethodGet, "/api/get_all_drivers", nil)
}

func (c *Client) GetDriver(ctx context.Context, driverID string) (core.Driver, error) {
	return call[core.Driver](ctx, c, http.MethodGet, "/api/get_driver/"+id(driverID), nil)
}

func (c *Client) CreateDriver(ctx context.Context, d core.Driver) (core.Driver, error) {
	return call[core.Driver](ctx, c, http.MethodPost, "/api/add_new/driver", d)
}

func (c *Client) UpdateDriver(ctx context.Context, driverID string, d core.Driver) (core.Driver, error) {
	return call[core.Driver](ctx, c, http.MethodPut, "/api/update_driver/"+id(driverID), d)
}

func (c *Client) DeleteDriver(ctx context.Context, driverID string) (Message, error) {
	return call[Message](ctx, c, http.MethodDelete, "/api/delete_driver/"+id(driverID), nil)
}

// Reports

// PeriodsQuery is a contract draft for the periods calculator.
type PeriodsQuery struct {
	StartDate                  core.Date
	EndDate                    core.Date
	PaymentFrequency           core.Frequency
	PaymentTerms               core.PaymentTerms
	PaymentAmount              core.Money
	ExpectedTotalPaymentAmount core.Money
	TotalAmountPaid            core.Money
}

func (q PeriodsQuery) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	if !q.StartDate.IsZero() {
		set("startDate", q.StartDate.String())
	}
	if !q.EndDate.IsZero() {
		set("endDate", q.EndDate.String())
	}
	set("paymentFrequency", string(q.PaymentFrequency))
	set("paymentTerms", string(q.PaymentTerms))
	money := func(k string, m core.Money) {
		if !m.IsZero() {
			v.Set(k, m.String())
		}
	}
	money("paymentAmount", q.PaymentAmount)
	money("expectedTotalPaymentAmount", q.ExpectedTotalPaymentAmount)
	money("totalAmountPaid", q.TotalAmountPaid)
	return v
}

// Periods asks the server to quote a contract draft.
func (c *Client) Periods(ctx context.Context, q PeriodsQuery) (services.Quote, error) {
	return call[services.Quote](ctx, c, http.MethodGet, "/api/contracts/periods?"+q.values().Encode(), nil)
}

func (c *Client) Summary(ctx context.Context) (services.Summary, error) {
	return call[services.Summary](ctx, c, http.MethodGet, "/api/dashboard/summary", nil)
}

// Export downloads a resource as an xlsx workbook. name may be empty for the
// server default. The returned file name is the one the server suggested.
func (c *Client) Export(ctx context.Context, resource, name string) ([]byte, string, error) {
	path := "/api/export/" + id(resource)
	if name != "" {
		path += "?" + url.Values{"name": {name}}.Encode()
	}
	return c.download(ctx, path)
}
