package exchange

import (
	"testing"
	"time"
)

func TestSignIsDeterministic(t *testing.T) {
	t.Parallel()
	auth := NewAuth(Credentials{APIKey: "key", Secret: "secret", Passphrase: "pass"})

	a := auth.Sign("2020-01-01T00:00:00.000Z", "POST", "/api/v5/trade/order", `{"sz":"1"}`)
	b := auth.Sign("2020-01-01T00:00:00.000Z", "POST", "/api/v5/trade/order", `{"sz":"1"}`)
	if a != b {
		t.Errorf("same input signed differently: %q vs %q", a, b)
	}
}

func TestSignVariesWithInput(t *testing.T) {
	t.Parallel()
	auth := NewAuth(Credentials{Secret: "secret"})

	tests := []struct {
		name                          string
		timestamp, method, path, body string
	}{
		{"base", "t", "GET", "/p", ""},
		{"different timestamp", "t2", "GET", "/p", ""},
		{"different method", "t", "POST", "/p", ""},
		{"different path", "t", "GET", "/q", ""},
		{"different body", "t", "GET", "/p", "x"},
	}

	seen := map[string]string{}
	for _, tt := range tests {
		sig := auth.Sign(tt.timestamp, tt.method, tt.path, tt.body)
		if prev, ok := seen[sig]; ok {
			t.Errorf("%s collides with %s: %q", tt.name, prev, sig)
		}
		seen[sig] = tt.name
	}
}

func TestHeadersCarryCredentials(t *testing.T) {
	t.Parallel()
	auth := NewAuth(Credentials{APIKey: "key", Secret: "secret", Passphrase: "pass"})
	auth.now = func() time.Time {
		return time.Date(2021, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	}

	headers := auth.Headers("GET", "/api/v5/account/balance", "")

	if headers["OK-ACCESS-KEY"] != "key" {
		t.Errorf("OK-ACCESS-KEY = %q, want %q", headers["OK-ACCESS-KEY"], "key")
	}
	if headers["OK-ACCESS-PASSPHRASE"] != "pass" {
		t.Errorf("OK-ACCESS-PASSPHRASE = %q, want %q", headers["OK-ACCESS-PASSPHRASE"], "pass")
	}
	if got, want := headers["OK-ACCESS-TIMESTAMP"], "2021-03-04T05:06:07.890Z"; got != want {
		t.Errorf("OK-ACCESS-TIMESTAMP = %q, want %q", got, want)
	}
	want := auth.Sign("2021-03-04T05:06:07.890Z", "GET", "/api/v5/account/balance", "")
	if headers["OK-ACCESS-SIGN"] != want {
		t.Errorf("OK-ACCESS-SIGN = %q, want %q", headers["OK-ACCESS-SIGN"], want)
	}
}
