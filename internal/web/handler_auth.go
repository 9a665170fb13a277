package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vbonduro/sitecheck/internal/auth"
	"github.com/vbonduro/sitecheck/internal/service"
)

var errForbidden = errors.New("administrator access required")

// authed requires a valid bearer token and stores the principal in the
// request context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		p, err := s.auth.Verify(r.Context(), token)
		var authErr *auth.AuthError
		switch {
		case errors.Is(err, auth.ErrUnauthenticated), errors.As(err, &authErr):
			s.logger.Warn("token rejected", "path", r.URL.Path, "error", err)
			s.writeError(w, r, auth.ErrUnauthenticated)
			return
		case err != nil:
			s.writeError(w, r, fmt.Errorf("failed to verify token: %w", err))
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// admin is authed plus a check against the administrator list.
func (s *Server) admin(next http.HandlerFunc) http.Handler {
	return s.authed(func(w http.ResponseWriter, r *http.Request) {
		if !s.admins.IsAdmin(auth.FromContext(r.Context())) {
			s.writeError(w, r, errForbidden)
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// actor names the signed-in user in work logs and notifications.
func actor(r *http.Request) string {
	if p := auth.FromContext(r.Context()); p != nil {
		return p.Email
	}
	return ""
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type idpCredentials struct {
	ProviderID string `json:"providerId"`
	Credential string `json:"credential"`
}

type session struct {
	*auth.Principal
	Admin bool `json:"admin"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := readCredentials(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session{Principal: p, Admin: s.admins.IsAdmin(p)})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := readCredentials(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("user signed up", "email", p.Email)
	s.writeJSON(w, http.StatusCreated, session{Principal: p, Admin: s.admins.IsAdmin(p)})
}

func (s *Server) handleIdPLogin(w http.ResponseWriter, r *http.Request) {
	var req idpCredentials
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ProviderID == "" || req.Credential == "" {
		s.writeError(w, r, fmt.Errorf("%w: providerId and credential are required", service.ErrInvalid))
		return
	}
	p, err := s.auth.SignInWithIdP(r.Context(), req.ProviderID, req.Credential)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session{Principal: p, Admin: s.admins.IsAdmin(p)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.FromContext(r.Context())
	s.writeJSON(w, http.StatusOK, session{Principal: p, Admin: s.admins.IsAdmin(p)})
}

func readCredentials(w http.ResponseWriter, r *http.Request, req *credentials) error {
	if err := readJSON(w, r, req); err != nil {
		return err
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", service.ErrInvalid)
	}
	return nil
}
