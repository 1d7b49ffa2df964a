package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const (
	CSRFFormField  = "_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFToken returns the session's CSRF token, creating one if needed.
func (s *Sessions) CSRFToken(ctx context.Context) string {
	if tok := s.Manager.GetString(ctx, keyCSRF); tok != "" {
		return tok
	}
	return s.rotateCSRF(ctx)
}

func (s *Sessions) rotateCSRF(ctx context.Context) string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		slog.Error("could not generate csrf token", "err", err)
		return ""
	}
	tok := hex.EncodeToString(b)
	s.Manager.Put(ctx, keyCSRF, tok)
	return tok
}

// VerifyCSRF rejects state changing requests whose token does not match
// the session. Must run inside LoadAndSave.
func (s *Sessions) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		expected := s.Manager.GetString(r.Context(), keyCSRF)
		got := r.Header.Get(CSRFHeaderName)
		if got == "" {
			got = r.PostFormValue(CSRFFormField)
		}
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			slog.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
			http.Error(w, "Page Expired", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
