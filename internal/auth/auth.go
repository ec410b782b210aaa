// Package auth guards the admin and cron surfaces with shared secrets. The
// admin key can be supplied as a bcrypt hash so the plaintext never lives in
// the environment of every deployment target.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	AdminKeyHeader   = "X-Admin-Key"
	CronSecretHeader = "X-Cron-Secret"
)

// KeyGuard validates a shared-secret header against either a bcrypt hash or
// a plain value (constant-time). An empty configuration rejects everything:
// an unset secret must fail closed, not open.
type KeyGuard struct {
	header string
	hash   string
	plain  string
}

func NewAdminGuard(hash, plain string) *KeyGuard {
	return &KeyGuard{header: AdminKeyHeader, hash: strings.TrimSpace(hash), plain: strings.TrimSpace(plain)}
}

func NewCronGuard(plain string) *KeyGuard {
	return &KeyGuard{header: CronSecretHeader, plain: strings.TrimSpace(plain)}
}

func (g *KeyGuard) Allow(r *http.Request) bool {
	presented := strings.TrimSpace(r.Header.Get(g.header))
	if presented == "" {
		return false
	}
	if g.hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(presented)) == nil
	}
	if g.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.plain), []byte(presented)) == 1
}

// Require wraps a handler with the guard, responding 401 on failure.
func (g *KeyGuard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.Allow(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
