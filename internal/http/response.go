package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"rentdesk/internal/auth"
	"rentdesk/internal/core"
	"rentdesk/internal/log"
	"rentdesk/internal/services"
	"rentdesk/internal/storage"
)

const genericErrorMessage = "Something went wrong. Please try again later."

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, genericErrorMessage)
		return
	}
	writeRawJSON(w, status, body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

// classify maps a service error to its status, the message shown to the
// caller and the log category.
func classify(err error) (status int, msg, errorType string) {
	var verr *core.ValidationError
	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		return http.StatusBadRequest, rerr.msg, log.ErrorTypeValidation
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error(), log.ErrorTypeValidation
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "Record not found", log.ErrorTypeNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error(), log.ErrorTypeAuth
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, err.Error(), log.ErrorTypeForbidden
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInUse):
		return http.StatusConflict, err.Error(), log.ErrorTypeConflict
	}
	return http.StatusInternalServerError, genericErrorMessage, log.ErrorTypeDatabase
}

// fail writes the error response for err. Server errors are logged with their
// detail, which never reaches the caller.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op, resource string) {
	status, msg, errorType := classify(err)
	fields := log.NewFields().WithResource(resource).WithHTTPRequest(r.Method, r.URL.Path)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		fields.WithUser(claims.UserID(), string(claims.Role))
	}
	if status >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, errorType, op, fields)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			fields.WithError(err, errorType).WithOperation(op).ToSlice()...)
	}
	writeError(w, status, msg)
}

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerQuoteUpdated tells the contract form the derived totals changed.
func (b *HTMXResponseBuilder) TriggerQuoteUpdated(q services.Quote) *HTMXResponseBuilder {
	return b.Trigger("quote:updated", map[string]any{
		"periods":                    q.Periods,
		"expectedTotalPaymentAmount": q.ExpectedTotalPaymentAmount,
		"balanceLeft":                q.BalanceLeft,
	})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// TriggerNotification adds a show-notification trigger.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Redirect asks htmx to navigate the whole page.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = html
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML error fragment. The message is escaped.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}
