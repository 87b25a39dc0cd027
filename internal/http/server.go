// Package http serves the rentdesk JSON API and the HTMX dashboard.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/cors"

	"rentdesk/internal/auth"
	"rentdesk/internal/cache"
	"rentdesk/internal/core"
	"rentdesk/internal/log"
	"rentdesk/internal/middleware/ratelimit"
	"rentdesk/internal/middleware/security"
	"rentdesk/internal/middleware/trace"
	"rentdesk/internal/services"
	"rentdesk/internal/storage"
	appweb "rentdesk/web"
)

const (
	listCacheSize = 64
	listCacheTTL  = 15 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr               string
	Service            *services.Service
	Tokens             *auth.TokenManager
	CookieSecure       bool
	RateLimit          ratelimit.Config
	CORSAllowedOrigins []string
	TrustedProxies     []string
	Logger             *log.Logger
}

type Server struct {
	http.Server

	svc          *services.Service
	tokens       *auth.TokenManager
	cookieSecure bool

	logger    *log.Logger
	events    *log.StructuredLogger
	templates *template.Template

	detector        *security.Detector
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware

	// lists holds encoded list and summary responses. Any mutation clears
	// it because populated references cross resources.
	lists   *cache.LRUCache[[]byte]
	janitor *cache.Janitor

	metrics *appMetrics
}

// NewServer wires the routes and the middleware chain.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil || opts.Tokens == nil {
		return nil, errors.New("http: service and token manager are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	if err := detector.AddTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		svc:             opts.Service,
		tokens:          opts.Tokens,
		cookieSecure:    opts.CookieSecure,
		logger:          logger,
		events:          log.NewStructuredLogger(logger),
		templates:       t,
		detector:        detector,
		rateLimiter:     ratelimit.NewLimiter(opts.RateLimit),
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP),
		lists:           cache.NewLRUCache[[]byte](listCacheSize, listCacheTTL),
		metrics:         newAppMetrics(),
	}
	s.janitor = cache.NewJanitor(time.Minute, func(n int) {
		logger.Debug("Expired list responses dropped", "count", n, log.FieldComponent, log.ComponentCache)
	})
	s.janitor.Watch(s.lists)
	s.janitor.Start(context.Background())

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	if len(opts.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{trace.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           600,
		}).Handler(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = log.Middleware(logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	user := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.tokens.Require(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.tokens.RequireAdmin(s.storedRole, h)) }
	// Writes are rate limited per client on top of auth.
	write := func(h http.HandlerFunc) http.Handler { return user(s.limit(h).ServeHTTP) }
	adminWrite := func(h http.HandlerFunc) http.Handler { return admin(s.limit(h).ServeHTTP) }

	// Session
	mux.Handle("POST /api/login", security.NoStore(s.limit(http.HandlerFunc(s.handleLogin))))
	mux.Handle("POST /api/logout", user(s.handleLogout))
	mux.Handle("GET /api/view/profile_info", user(s.handleProfile))

	// Users
	mux.Handle("GET /api/get/all_users", admin(s.handleListUsers))
	mux.Handle("POST /api/add/new_user", adminWrite(s.handleCreateUser))
	mux.Handle("PUT /api/modify/user/{$}", adminWrite(s.handleModifyUser))
	mux.Handle("DELETE /api/delete/user/{id}", adminWrite(s.handleDeleteUser))

	// Tenants
	mux.Handle("POST /api/create_rent/record", write(createJSON(s, core.ResourceTenants, s.svc.CreateTenant)))
	mux.Handle("GET /api/view/rent_records", user(listJSON(s, core.ResourceTenants, s.svc.ListTenants)))
	mux.Handle("GET /api/view/rent_record/{id}", user(getJSON(s, core.ResourceTenants, s.svc.GetTenant)))
	mux.Handle("PUT /api/edit/rent_record/{id}", write(updateJSON(s, core.ResourceTenants, s.svc.UpdateTenant)))
	mux.Handle("DELETE /api/delete/rent_record/{id}", write(deleteJSON(s, core.ResourceTenants, "Tenant", s.svc.DeleteTenant)))

	// Apartments
	mux.Handle("POST /api/add/apartment_property", write(createJSON(s, core.ResourceApartments, s.svc.CreateApartment)))
	mux.Handle("GET /api/get/apartment_properties", user(listJSON(s, core.ResourceApartments, s.svc.ListApartments)))
	mux.Handle("GET /api/get/apartment_property/{id}", user(getJSON(s, core.ResourceApartments, s.svc.GetApartment)))
	mux.Handle("PUT /api/edit/apartment_property/{id}", write(updateJSON(s, core.ResourceApartments, s.svc.UpdateApartment)))
	mux.Handle("DELETE /api/delete/apartment_property/{id}", write(deleteJSON(s, core.ResourceApartments, "Apartment", s.svc.DeleteApartment)))
	// "/api/get/{apartmentId}/apartment_property_tenants" overlaps the
	// "/api/get/<kind>/{id}" routes, so it is matched here and the view
	// segment checked by hand.
	mux.Handle("GET /api/get/{apartmentId}/{view}", user(s.handleApartmentTenants))

	// Rent payments
	mux.Handle("POST /api/apartment/add_payment", write(createJSON(s, core.ResourcePayments, s.svc.CreatePayment)))
	mux.Handle("PUT /api/apartment/edit_payment/{id}", write(updateJSON(s, core.ResourcePayments, s.svc.UpdatePayment)))
	mux.Handle("DELETE /api/apartment/delete_payment/{id}", write(deleteJSON(s, core.ResourcePayments, "Payment", s.svc.DeletePayment)))
	mux.Handle("GET /api/apartment/all_payments", user(listJSON(s, core.ResourcePayments, s.svc.ListPayments)))
	mux.Handle("GET /api/apartment/get_payment/{id}", user(getJSON(s, core.ResourcePayments, s.svc.GetPayment)))

	// Vehicles
	mux.Handle("GET /api/get/vehicle_records", user(listJSON(s, core.ResourceVehicles, s.svc.ListVehicles)))
	mux.Handle("POST /api/add/vehicle_record", write(createJSON(s, core.ResourceVehicles, s.svc.CreateVehicle)))
	mux.Handle("GET /api/get/vehicle_record/{id}", user(getJSON(s, core.ResourceVehicles, s.svc.GetVehicle)))
	mux.Handle("PUT /api/edit/vehicle_record/{id}", write(updateJSON(s, core.ResourceVehicles, s.svc.UpdateVehicle)))
	mux.Handle("DELETE /api/delete/vehicle_record/{id}", write(deleteJSON(s, core.ResourceVehicles, "Vehicle", s.svc.DeleteVehicle)))

	// Maintenance
	mux.Handle("POST /api/add/maintenance_record", write(createJSON(s, core.ResourceMaintenance, s.svc.CreateMaintenance)))
	mux.Handle("GET /api/get/maintenance_records", user(listJSON(s, core.ResourceMaintenance, s.svc.ListMaintenance)))
	mux.Handle("GET /api/get/vehicle_maintenance_record/{id}", user(getJSON(s, core.ResourceMaintenance, s.svc.GetMaintenance)))
	mux.Handle("PUT /api/edit/vehicle_maintenance/{id}", write(updateJSON(s, core.ResourceMaintenance, s.svc.UpdateMaintenance)))
	mux.Handle("DELETE /api/delete/maintenance_record/{id}", write(deleteJSON(s, core.ResourceMaintenance, "Maintenance record", s.svc.DeleteMaintenance)))

	// Contracts
	mux.Handle("GET /api/get_all_contracts", user(listJSON(s, core.ResourceContracts, s.svc.ListContracts)))
	mux.Handle("GET /api/get_contract/{id}", user(getJSON(s, core.ResourceContracts, s.svc.GetContract)))
	mux.Handle("POST /api/create_contract", write(createJSON(s, core.ResourceContracts, s.svc.CreateContract)))
	mux.Handle("PUT /api/update_contract/{id}", write(updateJSON(s, core.ResourceContracts, s.svc.UpdateContract)))
	mux.Handle("DELETE /api/delete_contract/{id}", write(deleteJSON(s, core.ResourceContracts, "Contract", s.svc.DeleteContract)))

	// Contract payments
	mux.Handle("GET /api/get_all_contract_payments", user(listJSON(s, core.ResourceContractPayments, s.svc.ListContractPayments)))
	mux.Handle("GET /api/get_contract_payment/{id}", user(getJSON(s, core.ResourceContractPayments, s.svc.GetContractPayment)))
	mux.Handle("POST /api/create_contract_payment", write(createJSON(s, core.ResourceContractPayments, s.svc.CreateContractPayment)))
	mux.Handle("PUT /api/update_contract_payment/{id}", write(updateJSON(s, core.ResourceContractPayments, s.svc.UpdateContractPayment)))
	mux.Handle("DELETE /api/delete_contract_payment/{id}", write(deleteJSON(s, core.ResourceContractPayments, "Contract payment", s.svc.DeleteContractPayment)))

	// Drivers
	mux.Handle("GET /api/get_all_drivers", user(listJSON(s, core.ResourceDrivers, s.svc.ListDrivers)))
	mux.Handle("GET /api/get_driver/{id}", user(getJSON(s, core.ResourceDrivers, s.svc.GetDriver)))
	mux.Handle("POST /api/add_new/driver", write(createJSON(s, core.ResourceDrivers, s.svc.CreateDriver)))
	mux.Handle("PUT /api/update_driver/{id}", write(updateJSON(s, core.ResourceDrivers, s.svc.UpdateDriver)))
	mux.Handle("DELETE /api/delete_driver/{id}", write(deleteJSON(s, core.ResourceDrivers, "Driver", s.svc.DeleteDriver)))

	// Reports
	mux.Handle("GET /api/contracts/periods", user(s.handlePeriods))
	mux.Handle("GET /api/dashboard/summary", user(s.handleSummary))
	mux.Handle("GET /api/export/{resource}", user(s.handleExport))

	// Unknown API paths answer in JSON rather than with the dashboard.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	// Operations
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Dashboard
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", s.limit(http.HandlerFunc(s.handleLoginForm)))
	mux.HandleFunc("POST /logout", s.handleLogoutForm)
	mux.HandleFunc("POST /ui/contract-quote", s.handleContractQuote)
}

// limit applies the per-client rate limiter.
func (s *Server) limit(next http.Handler) http.Handler {
	return s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
	})(next)
}

// storedRole reads the caller's role from the user table for admin routes.
func (s *Server) storedRole(ctx context.Context, userID string) (core.Role, error) {
	u, err := s.svc.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("user %s: %w", userID, auth.ErrUnknownUser)
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// invalidate drops cached list responses after a write.
func (s *Server) invalidate() {
	s.lists.Clear()
}

// Shutdown stops accepting requests, then releases the limiter and cache
// goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.rateLimiter.Stop()
	s.janitor.Stop()
	return err
}
