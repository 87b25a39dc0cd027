package core

import (
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountAllowsZero(t *testing.T) {
	got, err := ParseAmount("0")
	if err != nil || got != 0 {
		t.Fatalf("expected 0, got %d (err=%v)", got, err)
	}
	if _, err := ParseAmount("-5"); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		123456: "1234.56",
		-250:   "-2.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{`1500`, 150000, true},
		{`12.5`, 1250, true},
		{`"99,99"`, 9999, true},
		{`""`, 0, true},
		{`null`, 0, true},
		{`"abc"`, 0, false},
		{`-3`, 0, false},
		{`1.5e3`, 150000, true},
		{`1e-7`, 0, true},
		{`2E2`, 20000, true},
		{`-1e2`, 0, false},
		{`1e400`, 0, false},
		{`"1e3"`, 0, false},
		{`1000000000001`, 0, false},
		{`1e13`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := m.UnmarshalJSON([]byte(tc.in))
		if tc.ok {
			if err != nil || m.Cents != tc.out {
				t.Fatalf("%s expected %d, got %d (err=%v)", tc.in, tc.out, m.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%s expected error", tc.in)
		}
	}

	out, err := MustMoney("1234.5").MarshalJSON()
	if err != nil || string(out) != "1234.50" {
		t.Fatalf("marshal = %s (err=%v)", out, err)
	}
}

func TestParseAmountLimit(t *testing.T) {
	got, err := ParseAmount("1000000000000")
	if err != nil || got != MaxAmount.Cents {
		t.Fatalf("limit: got %d (err=%v)", got, err)
	}
	for _, in := range []string{"1000000000000.01", "90000000000000000", "99999999999999999999"} {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}

func TestMoneyArithmeticSaturates(t *testing.T) {
	big := Money{Cents: math.MaxInt64 / 2}
	if got := big.Times(3); got.Cents != math.MaxInt64 {
		t.Fatalf("Times overflow = %d", got.Cents)
	}
	if got := big.Times(-3); got.Cents != math.MinInt64 {
		t.Fatalf("Times negative overflow = %d", got.Cents)
	}
	if _, ok := big.MulChecked(3); ok {
		t.Fatal("MulChecked should report overflow")
	}
	if got, ok := MustMoney("2.50").MulChecked(4); !ok || got.Cents != 1000 {
		t.Fatalf("MulChecked = %d, %v", got.Cents, ok)
	}
	if got := big.Add(big).Add(big); got.Cents != math.MaxInt64 {
		t.Fatalf("Add overflow = %d", got.Cents)
	}
	if got := (Money{Cents: math.MinInt64 + 5}).Sub(Money{Cents: 10}); got.Cents != math.MinInt64 {
		t.Fatalf("Sub overflow = %d", got.Cents)
	}
	if got := MustMoney("5").Sub(MustMoney("7.25")); got.Cents != -225 {
		t.Fatalf("Sub = %d", got.Cents)
	}
}
