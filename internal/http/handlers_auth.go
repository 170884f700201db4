package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	flog "fintrack/internal/log"
)

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireUser rejects requests without a valid session and stores the
// user id in the request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := sessionToken(r)
		if raw == "" {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		u, err := s.auth.Authenticate(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := auth.WithUserID(r.Context(), u.ID)
		ctx = flog.WithLogger(ctx, flog.FromContext(ctx).With(flog.FieldUserID, u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authLogger(r *http.Request) *flog.Logger {
	return flog.FromContext(r.Context()).WithComponent(flog.ComponentAuth)
}

// userID is only called behind requireUser.
func userID(r *http.Request) int64 {
	id, _ := auth.UserIDFrom(r.Context())
	return id
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.auth.Signup(r.Context(), p.Get("username"), p.Get("password"), p.Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	authLogger(r).Info("User signed up",
		flog.NewFields().WithUser(u.ID).WithOperation(flog.OpCreate).ToSlice()...)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.auth.Login(r.Context(), p.Get("username"), p.Get("password"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	authLogger(r).Info("Session started",
		flog.NewFields().WithUser(sess.User.ID).WithOperation(flog.OpLogin).ToSlice()...)
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: sess.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
