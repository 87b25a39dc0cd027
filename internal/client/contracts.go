package client

import (
	"fmt"
	"sort"
	"strings"

	"rentdesk/internal/core"
)

// ContractQuery is what the contracts page lets a user choose.
type ContractQuery struct {
	Status     core.ContractStatus // empty means all
	Search     string              // driver name or vehicle registration
	SortField  string              // one of ContractSortFields; empty keeps server order
	Descending bool
	Page       int
	PageSize   int
}

var contractSorters = map[string]func(a, b core.Contract) bool{
	"startDate":     func(a, b core.Contract) bool { return a.StartDate.Before(b.StartDate.Time) },
	"endDate":       func(a, b core.Contract) bool { return a.EndDate.Before(b.EndDate.Time) },
	"driver":        func(a, b core.Contract) bool { return contractDriver(a) < contractDriver(b) },
	"paymentAmount": func(a, b core.Contract) bool { return a.PaymentAmount.Cents < b.PaymentAmount.Cents },
}

// ContractSortFields lists the fields contracts can be sorted by.
func ContractSortFields() []string {
	out := make([]string, 0, len(contractSorters))
	for k := range contractSorters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contractDriver(c core.Contract) string {
	if c.Driver.Doc != nil {
		return strings.ToLower(c.Driver.Doc.FullName())
	}
	return ""
}

func contractVehicleReg(c core.Contract) string {
	if c.Vehicle.Doc != nil {
		return c.Vehicle.Doc.VehicleRegNum
	}
	return ""
}

// QueryContracts filters, searches, sorts and pages contracts the way the
// contracts page does.
func QueryContracts(items []core.Contract, q ContractQuery) ([]core.Contract, int, error) {
	out := items
	if q.Status != "" {
		if !q.Status.Valid() {
			return nil, 0, fmt.Errorf("unknown status %q", q.Status)
		}
		out = Filter(out, func(c core.Contract) bool { return c.Status == q.Status })
	}
	out = Search(out, q.Search, contractDriver, contractVehicleReg)
	if q.SortField != "" {
		less, ok := contractSorters[q.SortField]
		if !ok {
			return nil, 0, fmt.Errorf("cannot sort by %q, use one of %s", q.SortField, strings.Join(ContractSortFields(), ", "))
		}
		out = SortBy(out, less, q.Descending)
	}
	page := q.Page
	if page == 0 {
		page = 1
	}
	items, pages := Page(out, page, q.PageSize)
	return items, pages, nil
}
