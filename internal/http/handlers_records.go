package http

import (
	"context"
	"encoding/json"
	"net/http"

	"rentdesk/internal/auth"
	"rentdesk/internal/log"
)

// identified is satisfied by every entity through core.Record.
type identified interface {
	RecordID() string
}

// listJSON serves a list endpoint through the response cache.
func listJSON[T any](s *Server, resource string, list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := "list:" + resource
		if body, ok := s.lists.Get(key); ok {
			writeRawJSON(w, http.StatusOK, body)
			return
		}
		gen := s.lists.Generation()
		items, err := list(r.Context())
		if err != nil {
			s.fail(w, r, err, log.OpList, resource)
			return
		}
		body, err := json.Marshal(items)
		if err != nil {
			s.fail(w, r, err, log.OpList, resource)
			return
		}
		s.lists.SetIfGeneration(key, body, gen)
		writeRawJSON(w, http.StatusOK, body)
	}
}

func getJSON[T any](s *Server, resource string, get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), r.PathValue("id"))
		if err != nil {
			s.fail(w, r, err, log.OpRead, resource)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// createJSON answers 200 rather than 201: dashboard clients test for 200.
func createJSON[T identified](s *Server, resource string, create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeJSON[T](w, r)
		if err != nil {
			s.fail(w, r, err, log.OpCreate, resource)
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			s.fail(w, r, err, log.OpCreate, resource)
			return
		}
		s.mutated(r, log.OpCreate, resource, out.RecordID())
		writeJSON(w, http.StatusOK, out)
	}
}

func updateJSON[T identified](s *Server, resource string, update func(context.Context, string, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeJSON[T](w, r)
		if err != nil {
			s.fail(w, r, err, log.OpUpdate, resource)
			return
		}
		out, err := update(r.Context(), r.PathValue("id"), in)
		if err != nil {
			s.fail(w, r, err, log.OpUpdate, resource)
			return
		}
		s.mutated(r, log.OpUpdate, resource, out.RecordID())
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteJSON(s *Server, resource, label string, del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := del(r.Context(), id); err != nil {
			s.fail(w, r, err, log.OpDelete, resource)
			return
		}
		s.mutated(r, log.OpDelete, resource, id)
		writeMessage(w, label+" deleted successfully")
	}
}

// mutated clears cached lists, counts the write and logs it.
func (s *Server) mutated(r *http.Request, op, resource, id string) {
	s.invalidate()
	s.metrics.mutation()
	fields := log.NewFields()
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		fields.WithUser(claims.UserID(), string(claims.Role))
	}
	s.events.LogMutation(r.Context(), op, resource, id, fields)
}

func (s *Server) handleApartmentTenants(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("view") != "apartment_property_tenants" {
		writeError(w, http.StatusNotFound, "Route not found")
		return
	}
	tenants, err := s.svc.ApartmentTenants(r.Context(), r.PathValue("apartmentId"))
	if err != nil {
		s.fail(w, r, err, log.OpList, "tenants")
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}
