package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rentdesk/internal/core"
)

const maxBodyBytes = 1 << 20

// requestError is a malformed request, answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON document of at most maxBodyBytes.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return v, badRequest("Request body is empty")
		case errors.As(err, &maxErr):
			return v, badRequest("Request body is too large")
		case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidAmount):
			return v, badRequest("Invalid request body: %v", err)
		}
		return v, badRequest("Invalid JSON body")
	}
	return v, nil
}

// RequestBodyParser reads a JSON object or a form-encoded body so the
// dashboard form and scripted callers share one code path.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// contractDraft builds a contract from loose string fields, as sent by the
// periods query and the dashboard quote form. A date that does not parse is
// left zero so the quote comes out as zero periods. Every other problem is
// reported.
func contractDraft(get func(string) string) (core.Contract, error) {
	var problems []string
	date := func(field string) core.Date {
		d, err := core.ParseDate(get(field))
		if err != nil {
			return core.Date{}
		}
		return d
	}
	money := func(field string) core.Money {
		v := get(field)
		if v == "" {
			return core.Money{}
		}
		cents, err := core.ParseAmount(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not a valid amount", field, v))
		}
		return core.Money{Cents: cents}
	}

	c := core.Contract{
		StartDate:                  date("startDate"),
		EndDate:                    date("endDate"),
		PaymentTerms:               core.PaymentTerms(get("paymentTerms")),
		PaymentFrequency:           core.Frequency(get("paymentFrequency")),
		PaymentAmount:              money("paymentAmount"),
		ExpectedTotalPaymentAmount: money("expectedTotalPaymentAmount"),
		TotalAmountPaid:            money("totalAmountPaid"),
	}
	if c.PaymentTerms == "" {
		c.PaymentTerms = core.TermsFixed
	}
	if !c.PaymentTerms.Valid() {
		problems = append(problems, fmt.Sprintf("paymentTerms %q is not one of fixed, percentage", c.PaymentTerms))
	}
	if len(problems) > 0 {
		return c, &core.ValidationError{Problems: problems}
	}
	return c, nil
}
