// Package middleware contains shared Gin middleware used by the admin HTTP
// API.
//
// This file implements AdminAuth, a static bearer-token check. Tokens come
// from configuration; there are no sessions or user accounts.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// adminKey is the Gin context key holding the authenticated caller's token
// fingerprint.
const adminKey = "admin"

// AdminAuth requires "Authorization: Bearer <token>" with one of tokens.
// Comparison is constant-time. On success the token's fingerprint (a short
// SHA-256 prefix, safe to log) is stored for the logger and rate limiter.
// An empty token list rejects every request.
func AdminAuth(tokens []string) gin.HandlerFunc {
	type known struct {
		token []byte
		fp    string
	}
	allowed := make([]known, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			allowed = append(allowed, known{token: []byte(t), fp: Fingerprint(t)})
		}
	}

	return func(c *gin.Context) {
		got, ok := bearerToken(c.GetHeader("Authorization"))
		if ok {
			match := ""
			for _, k := range allowed {
				// Keep scanning after a hit so timing does not reveal the position.
				if subtle.ConstantTimeCompare([]byte(got), k.token) == 1 {
					match = k.fp
				}
			}
			if match != "" {
				c.Set(adminKey, match)
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Bearer realm="admin"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": GetRequestID(c),
			"code":       "unauthorized",
			"message":    "missing or invalid bearer token",
		})
	}
}

// Fingerprint returns the first 12 hex characters of the token's SHA-256.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// AdminFrom returns the fingerprint stored by AdminAuth, or "".
func AdminFrom(c *gin.Context) string {
	return c.GetString(adminKey)
}

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
