package http

import (
	"net/http"
	"strings"

	"rentdesk/internal/auth"
	"rentdesk/internal/core"
	"rentdesk/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    core.User `json:"user"`
}

// login authenticates and issues a session token.
func (s *Server) login(r *http.Request, email, password string) (core.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return core.User{}, "", badRequest("Email and password are required")
	}
	u, err := s.svc.Authenticate(r.Context(), email, password)
	if err != nil {
		s.metrics.login(false)
		return core.User{}, "", err
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return core.User{}, "", err
	}
	s.metrics.login(true)
	s.logger.InfoContext(r.Context(), "User logged in",
		log.NewFields().WithOperation(log.OpLogin).WithUser(u.ID, string(u.Role)).ToSlice()...)
	return u, token, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[loginRequest](w, r)
	if err != nil {
		s.fail(w, r, err, log.OpLogin, core.ResourceUsers)
		return
	}
	u, token, err := s.login(r, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, log.OpLogin, core.ResourceUsers)
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, s.tokens.TTL(), s.cookieSecure))
	writeJSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: token, User: u})
}

// handleLogout clears the cookie. Tokens are stateless, so a copied bearer
// token stays valid until it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.SessionCookie("", 0, s.cookieSecure))
	writeMessage(w, "Logged out successfully")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	u, err := s.svc.GetUser(r.Context(), claims.UserID())
	if err != nil {
		s.fail(w, r, err, log.OpRead, core.ResourceUsers)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpList, core.ResourceUsers)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[core.UserInput](w, r)
	if err != nil {
		s.fail(w, r, err, log.OpCreate, core.ResourceUsers)
		return
	}
	u, err := s.svc.CreateUser(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, log.OpCreate, core.ResourceUsers)
		return
	}
	s.mutated(r, log.OpCreate, core.ResourceUsers, u.ID)
	writeJSON(w, http.StatusOK, u)
}

// handleModifyUser takes the id from the body, as the dashboard sends it.
func (s *Server) handleModifyUser(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[core.UserInput](w, r)
	if err != nil {
		s.fail(w, r, err, log.OpUpdate, core.ResourceUsers)
		return
	}
	u, err := s.svc.UpdateUser(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, log.OpUpdate, core.ResourceUsers)
		return
	}
	s.mutated(r, log.OpUpdate, core.ResourceUsers, u.ID)
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, r, err, log.OpDelete, core.ResourceUsers)
		return
	}
	s.mutated(r, log.OpDelete, core.ResourceUsers, id)
	writeMessage(w, "User deleted successfully")
}
