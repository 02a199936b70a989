// auth.go signs live-venue REST requests.
//
// The venue authenticates every private endpoint with an API-key triplet:
// the request carries the key, a passphrase, an ISO-8601 timestamp, and a
// base64 HMAC-SHA256 signature over "timestamp + method + path + body".
package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// Credentials is the venue API-key triplet. The secret never leaves this
// package.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Auth builds signed headers for private REST endpoints.
type Auth struct {
	creds Credentials
	now   func() time.Time
}

// NewAuth creates an Auth using the wall clock for timestamps.
func NewAuth(creds Credentials) *Auth {
	return &Auth{creds: creds, now: time.Now}
}

// Sign computes the base64 HMAC-SHA256 signature over the canonical
// prehash string.
func (a *Auth) Sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(a.creds.Secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the signed header set for one request.
func (a *Auth) Headers(method, path, body string) map[string]string {
	timestamp := a.now().UTC().Format("2006-01-02T15:04:05.000Z")
	return map[string]string{
		"OK-ACCESS-KEY":        a.creds.APIKey,
		"OK-ACCESS-SIGN":       a.Sign(timestamp, method, path, body),
		"OK-ACCESS-TIMESTAMP":  timestamp,
		"OK-ACCESS-PASSPHRASE": a.creds.Passphrase,
	}
}
