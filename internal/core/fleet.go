package core

import (
	"strings"
	"time"
)

const (
	MaintenancePending   MaintenanceStatus = "pending"
	MaintenanceOngoing   MaintenanceStatus = "ongoing"
	MaintenanceCompleted MaintenanceStatus = "completed"

	ContractActive     ContractStatus = "active"
	ContractCompleted  ContractStatus = "completed"
	ContractTerminated ContractStatus = "terminated"

	// TermsFixed charges paymentAmount every period.
	TermsFixed PaymentTerms = "fixed"
	// TermsPercentage treats paymentAmount as a 0-100 share of takings.
	TermsPercentage PaymentTerms = "percentage"

	ContractMethodCash         ContractPaymentMethod = "cash"
	ContractMethodBankTransfer ContractPaymentMethod = "bank_transfer"
	ContractMethodMobileMoney  ContractPaymentMethod = "mobile_money"
)

type (
	MaintenanceStatus     string
	ContractStatus        string
	PaymentTerms          string
	ContractPaymentMethod string

	// MaintenanceEntry is one line of a vehicle's embedded service history.
	MaintenanceEntry struct {
		Hist   string `json:"hist"`
		Cost   Money  `json:"cost"`
		Date   Date   `json:"date"`
		Status string `json:"status"`
	}

	Vehicle struct {
		Record
		VehicleType     string             `json:"vehicleType"`
		Make            string             `json:"make"`
		Model           string             `json:"model"`
		VehicleRegNum   string             `json:"vehicleRegNum"`
		ChassisNum      string             `json:"chassisNum"`
		MaintenanceHist []MaintenanceEntry `json:"maintenanceHist"`
		Driver          Ref[Driver]        `json:"driver"`
	}

	MaintenanceRecord struct {
		Record
		Vehicle         Ref[Vehicle]      `json:"vehicleId"`
		MaintenanceDate Date              `json:"maintenanceDate"`
		Cost            Money             `json:"cost"`
		Issue           []string          `json:"issue"`
		Status          MaintenanceStatus `json:"status"`
	}

	Driver struct {
		Record
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
		Phone         string `json:"phone"`
		Address       string `json:"address"`
		LicenseNumber string `json:"licenseNumber"`
		LicenseExpiry Date   `json:"licenseExpiry"`
		IsActive      bool   `json:"isActive"`
	}

	Contract struct {
		Record
		Driver                     Ref[Driver]    `json:"driverId"`
		Vehicle                    Ref[Vehicle]   `json:"vehicleId"`
		StartDate                  Date           `json:"startDate"`
		EndDate                    Date           `json:"endDate"`
		Status                     ContractStatus `json:"status"`
		PaymentTerms               PaymentTerms   `json:"paymentTerms"`
		PaymentAmount              Money          `json:"paymentAmount"`
		PaymentFrequency           Frequency      `json:"paymentFrequency"`
		ExpectedTotalPaymentAmount Money          `json:"expectedTotalPaymentAmount"`
		TotalAmountPaid            Money          `json:"totalAmountPaid"`
		BalanceLeft                Money          `json:"balanceLeft"`
	}

	ContractPayment struct {
		Record
		Contract      Ref[Contract]         `json:"contractId"`
		Driver        Ref[Driver]           `json:"driverId"`
		Amount        Money                 `json:"amount"`
		PaymentDate   Date                  `json:"paymentDate"`
		PaymentMethod ContractPaymentMethod `json:"paymentMethod"`
		Reference     string                `json:"reference"`
		Notes         string                `json:"notes"`
	}
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceOngoing, MaintenanceCompleted:
		return true
	}
	return false
}

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractCompleted, ContractTerminated:
		return true
	}
	return false
}

func (t PaymentTerms) Valid() bool {
	return t == TermsFixed || t == TermsPercentage
}

func (m ContractPaymentMethod) Valid() bool {
	switch m {
	case ContractMethodCash, ContractMethodBankTransfer, ContractMethodMobileMoney:
		return true
	}
	return false
}

func (v *Vehicle) Normalize() {
	if v.MaintenanceHist == nil {
		v.MaintenanceHist = []MaintenanceEntry{}
	}
	v.VehicleRegNum = strings.ToUpper(strings.TrimSpace(v.VehicleRegNum))
}

func (v Vehicle) Validate() error {
	var p problems
	p.required("make", v.Make)
	p.required("model", v.Model)
	p.required("vehicleRegNum", v.VehicleRegNum)
	for i, h := range v.MaintenanceHist {
		if h.Cost.Cents < 0 {
			p.add("maintenanceHist[%d].cost must not be negative", i)
		}
	}
	return p.err()
}

// Label is the short human name used in lists and exports.
func (v Vehicle) Label() string {
	return strings.TrimSpace(v.Make + " " + v.Model + " (" + v.VehicleRegNum + ")")
}

func (m *MaintenanceRecord) Normalize() {
	if m.Status == "" {
		m.Status = MaintenancePending
	}
	if m.Issue == nil {
		m.Issue = []string{}
	}
}

func (m MaintenanceRecord) Validate() error {
	var p problems
	p.required("vehicleId", m.Vehicle.ID)
	if m.MaintenanceDate.IsZero() {
		p.add("maintenanceDate is required")
	}
	if m.Cost.Cents < 0 {
		p.add("cost must not be negative")
	}
	if !m.Status.Valid() {
		p.add("status %q is not one of pending, ongoing, completed", m.Status)
	}
	return p.err()
}

func (d Driver) Validate() error {
	var p problems
	p.required("firstName", d.FirstName)
	p.required("lastName", d.LastName)
	p.required("phone", d.Phone)
	p.required("licenseNumber", d.LicenseNumber)
	return p.err()
}

func (d Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Normalize fills defaults and re-derives the expected total and balance.
func (c *Contract) Normalize() {
	if c.Status == "" {
		c.Status = ContractActive
	}
	if c.PaymentTerms == "" {
		c.PaymentTerms = TermsFixed
	}
	c.Derive()
}

func (c Contract) Validate() error {
	var p problems
	p.required("driverId", c.Driver.ID)
	p.required("vehicleId", c.Vehicle.ID)
	if c.StartDate.IsZero() {
		p.add("startDate is required")
	}
	if c.EndDate.IsZero() {
		p.add("endDate is required")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate.Time) {
		p.add("endDate must not be before startDate")
	}
	if !c.Status.Valid() {
		p.add("status %q is not one of active, completed, terminated", c.Status)
	}
	if !c.PaymentTerms.Valid() {
		p.add("paymentTerms %q is not one of fixed, percentage", c.PaymentTerms)
	}
	if !c.PaymentFrequency.Valid() {
		p.add("paymentFrequency %q is not one of daily, weekly, monthly", c.PaymentFrequency)
	}
	if c.PaymentAmount.Cents < 0 {
		p.add("paymentAmount must not be negative")
	}
	if c.PaymentTerms == TermsPercentage && c.PaymentAmount.Cents > 100*100 {
		p.add("paymentAmount is a percentage and must be between 0 and 100")
	}
	if c.TotalAmountPaid.Cents < 0 || c.ExpectedTotalPaymentAmount.Cents < 0 {
		p.add("amounts must not be negative")
	}
	if c.PaymentTerms == TermsFixed {
		periods := c.Periods()
		if total, ok := c.PaymentAmount.MulChecked(periods); !ok || total.Cents > MaxAmount.Cents {
			p.add("paymentAmount over %d periods exceeds the largest supported total of %s", periods, MaxAmount)
		}
	}
	return p.err()
}

// ExpiringWithin reports whether an active contract ends between asOf and
// asOf plus days.
func (c Contract) ExpiringWithin(asOf time.Time, days int) bool {
	if c.Status != ContractActive || c.EndDate.IsZero() {
		return false
	}
	left := c.EndDate.DaysUntil(asOf)
	return left >= 0 && left <= days
}

func (cp *ContractPayment) Normalize() {
	if cp.PaymentMethod == "" {
		cp.PaymentMethod = ContractMethodCash
	}
}

func (cp ContractPayment) Validate() error {
	var p problems
	p.required("contractId", cp.Contract.ID)
	p.required("driverId", cp.Driver.ID)
	if cp.Amount.Cents <= 0 {
		p.add("amount must be greater than zero")
	}
	if cp.PaymentDate.IsZero() {
		p.add("paymentDate is required")
	}
	if !cp.PaymentMethod.Valid() {
		p.add("paymentMethod %q is not one of cash, bank_transfer, mobile_money", cp.PaymentMethod)
	}
	return p.err()
}
