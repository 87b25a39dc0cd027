// Package core provides the domain types and the contract proration rules.
//
// This file implements the Strategy Pattern for billing-period counting.
// Each payment frequency (daily, weekly, monthly) has its own counter that
// knows how many periods a date range spans and where the next period starts.

package core

import (
	"fmt"
	"sync"
	"time"
)

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Frequency is how often a contract bills.
type Frequency string

func (f Frequency) Valid() bool {
	_, err := PeriodCounterFor(f)
	return err == nil
}

// PeriodCounter is the strategy interface for one billing frequency.
// Count receives UTC midnights with end not before start.
type PeriodCounter interface {
	Count(start, end time.Time) int
	// Next returns the first day of the period following the one that
	// starts at from.
	Next(from time.Time) time.Time
}

// DailyCounter counts inclusive calendar days.
type DailyCounter struct{}

func (DailyCounter) Count(start, end time.Time) int {
	return inclusiveDays(start, end)
}

func (DailyCounter) Next(from time.Time) time.Time { return from.AddDate(0, 0, 1) }

// WeeklyCounter counts started weeks, never fewer than one.
type WeeklyCounter struct{}

func (WeeklyCounter) Count(start, end time.Time) int {
	days := inclusiveDays(start, end)
	return max(1, (days+6)/7)
}

func (WeeklyCounter) Next(from time.Time) time.Time { return from.AddDate(0, 0, 7) }

// MonthlyCounter counts the calendar months touched by the range. Day of
// month plays no part: Jan 31 to Feb 1 is two periods.
type MonthlyCounter struct{}

func (MonthlyCounter) Count(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	return max(1, months+1)
}

// Next is the first day of the following month, matching how Count treats
// each touched month as one period.
func (MonthlyCounter) Next(from time.Time) time.Time {
	return time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func inclusiveDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

var (
	countersMu sync.RWMutex
	counters   = map[Frequency]PeriodCounter{
		FrequencyDaily:   DailyCounter{},
		FrequencyWeekly:  WeeklyCounter{},
		FrequencyMonthly: MonthlyCounter{},
	}
)

// PeriodCounterFor returns the counter registered for a frequency.
func PeriodCounterFor(f Frequency) (PeriodCounter, error) {
	countersMu.RLock()
	defer countersMu.RUnlock()
	c, ok := counters[f]
	if !ok {
		return nil, fmt.Errorf("unknown payment frequency: %q", f)
	}
	return c, nil
}

// RegisterPeriodCounter adds or replaces the counter for a frequency.
func RegisterPeriodCounter(f Frequency, c PeriodCounter) {
	countersMu.Lock()
	defer countersMu.Unlock()
	counters[f] = c
}

// CountPeriods returns how many billing periods lie between start and end,
// both inclusive. A missing date, a reversed range, or an unknown frequency
// all give zero.
func CountPeriods(start, end Date, freq Frequency) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	s, e := start.Midnight(), end.Midnight()
	if e.Before(s) {
		return 0
	}
	counter, err := PeriodCounterFor(freq)
	if err != nil {
		return 0
	}
	return counter.Count(s, e)
}

// ExpectedTotal is amount × periods under fixed terms. Any other terms keep
// the total the user entered.
func ExpectedTotal(terms PaymentTerms, amount Money, periods int, entered Money) Money {
	if terms == TermsFixed {
		return amount.Times(periods).NonNegative()
	}
	return entered
}

// Balance is what remains to be paid, never negative.
func Balance(expected, paid Money) Money {
	return expected.Sub(paid).NonNegative()
}

// Periods is the number of billing periods the contract spans.
func (c Contract) Periods() int {
	return CountPeriods(c.StartDate, c.EndDate, c.PaymentFrequency)
}

// Derive recomputes expectedTotalPaymentAmount and balanceLeft from the
// contract's dates, terms and payments. It returns the period count used.
func (c *Contract) Derive() int {
	periods := c.Periods()
	c.ExpectedTotalPaymentAmount = ExpectedTotal(c.PaymentTerms, c.PaymentAmount, periods, c.ExpectedTotalPaymentAmount)
	c.BalanceLeft = Balance(c.ExpectedTotalPaymentAmount, c.TotalAmountPaid)
	return periods
}

// Standing is how a contract stands on a given day.
type Standing struct {
	Periods        int   `json:"periods"`
	PeriodsElapsed int   `json:"periodsElapsed"`
	DueToDate      Money `json:"dueToDate"`
	Paid           Money `json:"paid"`
	Arrears        Money `json:"arrears"`
	Overdue        bool  `json:"overdue"`
	// NextDue is zero once the last period has started.
	NextDue Date `json:"nextDue"`
}

// StandingAt prorates the expected total over the periods that have started
// by asOf and compares it with what has been paid.
func (c Contract) StandingAt(asOf time.Time) Standing {
	st := Standing{Periods: c.Periods(), Paid: c.TotalAmountPaid}
	if st.Periods == 0 {
		return st
	}
	today := DateOf(asOf)
	if today.Before(c.StartDate.Midnight()) {
		st.NextDue = c.StartDate
		return st
	}
	upTo := today
	if c.EndDate.Before(today.Time) {
		upTo = c.EndDate
	}
	st.PeriodsElapsed = CountPeriods(c.StartDate, upTo, c.PaymentFrequency)

	if c.PaymentTerms == TermsFixed {
		st.DueToDate = c.PaymentAmount.Times(st.PeriodsElapsed)
	} else {
		st.DueToDate = prorate(c.ExpectedTotalPaymentAmount, st.PeriodsElapsed, st.Periods)
	}
	st.Arrears = Balance(st.DueToDate, st.Paid)
	st.Overdue = st.Arrears.Cents > 0

	if counter, err := PeriodCounterFor(c.PaymentFrequency); err == nil && st.PeriodsElapsed < st.Periods {
		next := c.StartDate.Midnight()
		for i := 0; i < st.PeriodsElapsed; i++ {
			next = counter.Next(next)
		}
		if !next.After(c.EndDate.Midnight()) {
			st.NextDue = DateOf(next)
		}
	}
	return st
}

// prorate is floor(total × part / whole) without forming the full product.
func prorate(total Money, part, whole int) Money {
	q, r := total.Cents/int64(whole), total.Cents%int64(whole)
	return Money{Cents: q*int64(part) + r*int64(part)/int64(whole)}
}
