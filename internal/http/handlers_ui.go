package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"golang.org/x/sync/errgroup"

	"rentdesk/internal/auth"
	"rentdesk/internal/core"
	"rentdesk/internal/log"
	"rentdesk/internal/services"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"date": func(d core.Date) string {
		if d.IsZero() {
			return "-"
		}
		return d.Format("02 Jan 2006")
	},
	"driverName": func(r core.Ref[core.Driver]) string {
		if r.Doc != nil {
			return r.Doc.FullName()
		}
		return r.ID
	},
	"vehicleLabel": func(r core.Ref[core.Vehicle]) string {
		if r.Doc != nil {
			return r.Doc.Label()
		}
		return r.ID
	},
}

// session returns the caller's claims when the request carries a valid token.
func (s *Server) session(r *http.Request) (*auth.Claims, bool) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return nil, false
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// render executes a template into a buffer first so a failure yields a clean
// 500 instead of half a page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template render failed", err, log.ErrorTypeInternal, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type loginPage struct {
	Error string
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{})
}

// handleLoginForm serves both the htmx form and a plain form post.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request").Write(w)
		return
	}
	email := p.Get("email")
	_, token, err := s.login(r, email, p.Get("password"))
	if err != nil {
		status, msg, _ := classify(err)
		if status >= http.StatusInternalServerError {
			s.events.LogError(r.Context(), "Login failed", err, log.ErrorTypeInternal, log.OpLogin, nil)
		}
		if r.Header.Get("HX-Request") == "true" {
			ErrorResponse(status, msg).Write(w)
			return
		}
		s.render(w, r, status, "login.html", loginPage{Error: msg, Email: email})
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, s.tokens.TTL(), s.cookieSecure))
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.SessionCookie("", 0, s.cookieSecure))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type dashboardPage struct {
	User    *auth.Claims
	Summary services.Summary
	Overdue []services.OverdueContract
	Quote   quoteView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.session(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	page := dashboardPage{User: claims}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { page.Summary, err = s.svc.Summary(ctx); return })
	g.Go(func() (err error) { page.Overdue, err = s.svc.OverdueContracts(ctx); return })
	if err := g.Wait(); err != nil {
		s.events.LogError(r.Context(), "Dashboard load failed", err, log.ErrorTypeDatabase, log.OpRender, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

type quoteView struct {
	Quote services.Quote
	Error string
	Ready bool
}

// handleContractQuote renders the derived totals for the contract form.
func (s *Server) handleContractQuote(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(r); !ok {
		ErrorResponse(http.StatusUnauthorized, "Session expired. Please sign in again.").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid request").Write(w)
		return
	}

	view := quoteView{}
	draft, err := contractDraft(p.Get)
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		view.Error = verr.Error()
	case err != nil:
		ErrorResponse(http.StatusBadRequest, "Invalid request").Write(w)
		return
	default:
		view.Quote = s.svc.Quote(draft)
		view.Ready = true
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "quote", view); err != nil {
		s.events.LogError(r.Context(), "Template render failed", err, log.ErrorTypeInternal, log.OpRender, nil)
		ErrorResponse(http.StatusInternalServerError, "Could not compute the quote").Write(w)
		return
	}
	resp := NewHTMXResponse().BodyHTML(buf.Bytes())
	if view.Ready {
		resp.TriggerQuoteUpdated(view.Quote)
	} else {
		resp.TriggerErrorNotification(view.Error)
	}
	resp.Write(w)
}
