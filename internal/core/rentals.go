package core

import "time"

const (
	ApartmentAvailable   ApartmentStatus = "Available"
	ApartmentOccupied    ApartmentStatus = "Occupied"
	ApartmentMaintenance ApartmentStatus = "Maintenance"

	TenantActive   TenantStatus = "Active"
	TenantInactive TenantStatus = "Inactive"

	MethodCash         PaymentMethod = "Cash"
	MethodMobileMoney  PaymentMethod = "Mobile Money"
	MethodBankTransfer PaymentMethod = "Bank Transfer"

	PaymentCompleted PaymentStatus = "Completed"
	PaymentPartial   PaymentStatus = "Partial"
)

type (
	ApartmentStatus string
	TenantStatus    string
	PaymentMethod   string
	PaymentStatus   string

	Apartment struct {
		Record
		Title       string          `json:"title"`
		Location    string          `json:"location"`
		Price       Money           `json:"price"`
		Status      ApartmentStatus `json:"status"`
		Description string          `json:"description"`
		// Tenants is derived from the tenants pointing at this apartment.
		Tenants     []string `json:"tenants"`
		TenantCount int      `json:"tenantCount"`
	}

	Tenant struct {
		Record
		TenantName          string         `json:"tenantName"`
		TenantPhone         string         `json:"tenantPhone"`
		RoomDescription     string         `json:"roomDescription"`
		RentedDate          Date           `json:"rentedDate"`
		ExpirationDate      Date           `json:"expirationDate"`
		NoOfMonthsRented    int            `json:"noOfMonthsRented"`
		AmountPaidOnUtility Money          `json:"amountPaidOnUtility"`
		MonthlyPrice        Money          `json:"monthlyPrice"`
		TotalAmount         Money          `json:"totalAmount"`
		Status              TenantStatus   `json:"status"`
		Apartment           Ref[Apartment] `json:"apartment"`
	}

	Payment struct {
		Record
		Tenant     Ref[Tenant]   `json:"tenant"`
		AmountPaid Money         `json:"amountPaid"`
		Method     PaymentMethod `json:"method"`
		Date       Date          `json:"date"`
		Status     PaymentStatus `json:"status"`
	}
)

func (s ApartmentStatus) Valid() bool {
	switch s {
	case ApartmentAvailable, ApartmentOccupied, ApartmentMaintenance:
		return true
	}
	return false
}

func (s TenantStatus) Valid() bool {
	return s == TenantActive || s == TenantInactive
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodMobileMoney, MethodBankTransfer:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentCompleted || s == PaymentPartial
}

// Normalize fills defaults.
func (a *Apartment) Normalize() {
	if a.Status == "" {
		a.Status = ApartmentAvailable
	}
	if a.Tenants == nil {
		a.Tenants = []string{}
	}
	a.TenantCount = len(a.Tenants)
}

func (a Apartment) Validate() error {
	var p problems
	p.required("title", a.Title)
	p.required("location", a.Location)
	if a.Price.Cents < 0 {
		p.add("price must not be negative")
	}
	if !a.Status.Valid() {
		p.add("status %q is not one of Available, Occupied, Maintenance", a.Status)
	}
	return p.err()
}

// Normalize fills defaults. When no total is given it becomes
// monthlyPrice × noOfMonthsRented + amountPaidOnUtility.
func (t *Tenant) Normalize() {
	if t.Status == "" {
		t.Status = TenantActive
	}
	if t.TotalAmount.IsZero() && t.NoOfMonthsRented > 0 {
		t.TotalAmount = t.MonthlyPrice.Times(t.NoOfMonthsRented).Add(t.AmountPaidOnUtility)
	}
}

func (t Tenant) Validate() error {
	var p problems
	p.required("tenantName", t.TenantName)
	p.required("tenantPhone", t.TenantPhone)
	if t.NoOfMonthsRented < 0 {
		p.add("noOfMonthsRented must not be negative")
	}
	if t.MonthlyPrice.Cents < 0 || t.AmountPaidOnUtility.Cents < 0 || t.TotalAmount.Cents < 0 {
		p.add("amounts must not be negative")
	}
	if t.TotalAmount.Cents > MaxAmount.Cents {
		p.add("totalAmount exceeds the largest supported amount of %s", MaxAmount)
	}
	if !t.RentedDate.IsZero() && !t.ExpirationDate.IsZero() && t.ExpirationDate.Before(t.RentedDate.Time) {
		p.add("expirationDate must not be before rentedDate")
	}
	if !t.Status.Valid() {
		p.add("status %q is not one of Active, Inactive", t.Status)
	}
	return p.err()
}

// LeaseExpiringWithin reports whether an active tenant's lease ends within
// the given number of days from asOf. Leases already past their end count.
func (t Tenant) LeaseExpiringWithin(asOf time.Time, days int) bool {
	if t.Status != TenantActive || t.ExpirationDate.IsZero() {
		return false
	}
	return t.ExpirationDate.DaysUntil(asOf) <= days
}

func (pm *Payment) Normalize() {
	if pm.Status == "" {
		pm.Status = PaymentCompleted
	}
	if pm.Method == "" {
		pm.Method = MethodCash
	}
}

func (pm Payment) Validate() error {
	var p problems
	p.required("tenant", pm.Tenant.ID)
	if pm.AmountPaid.Cents <= 0 {
		p.add("amountPaid must be greater than zero")
	}
	if !pm.Method.Valid() {
		p.add("method %q is not one of Cash, Mobile Money, Bank Transfer", pm.Method)
	}
	if pm.Date.IsZero() {
		p.add("date is required")
	}
	if !pm.Status.Valid() {
		p.add("status %q is not one of Completed, Partial", pm.Status)
	}
	return p.err()
}
