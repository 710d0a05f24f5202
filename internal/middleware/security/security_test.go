package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	d, err := NewDetector(DefaultTrustedProxies...)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	cases := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.9:5555", "", "", "203.0.113.9"},
		{"untrusted peer ignores forwarded", "203.0.113.9:5555", "198.51.100.1", "", "203.0.113.9"},
		{"trusted proxy uses first forwarded", "10.0.0.2:80", "198.51.100.1, 10.0.0.1", "", "198.51.100.1"},
		{"trusted proxy falls back to real ip", "127.0.0.1:80", "garbage", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy without headers", "192.168.1.5:80", "", "", "192.168.1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				r.Header.Set("X-Real-IP", tc.xri)
			}
			if got := d.ClientIP(r); got != tc.want {
				t.Fatalf("ClientIP=%q want %q", got, tc.want)
			}
		})
	}

	if _, err := NewDetector("not-a-cidr"); err == nil {
		t.Fatal("expected error for bad CIDR")
	}
}

func TestIsSuspicious(t *testing.T) {
	d, _ := NewDetector()
	cases := []struct {
		method, target, agent string
		want                  bool
	}{
		{http.MethodGet, "/expenses?sort=date_desc", "curl/8.0", false},
		{http.MethodPost, "/expenses", "Go-http-client/1.1", false},
		{http.MethodGet, "/.env", "", true},
		{http.MethodGet, "/expenses?category=1%27+union+select+1", "", true},
		{http.MethodGet, "/expenses?category=1%27%20UNION%20SELECT%201", "", true},
		{http.MethodGet, "/expenses?q=%2e%2e%2fetc%2fpasswd", "", true},
		{http.MethodGet, "/expenses?category=Food+%26+Drink", "", false},
		{http.MethodGet, "/expenses?category=%zz", "", false},
		{http.MethodGet, "/", "sqlmap/1.7", true},
		{"TRACE", "/", "", true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.target, nil)
		r.Header.Set("User-Agent", tc.agent)
		if got := d.IsSuspicious(r); got != tc.want {
			t.Fatalf("%s %s agent=%q: got %v want %v", tc.method, tc.target, tc.agent, got, tc.want)
		}
	}
}

func TestDetectorMiddlewareCounts(t *testing.T) {
	d, _ := NewDetector()
	h := d.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/expenses", nil))
	if got := d.GetMetrics().SuspiciousRequests; got != 1 {
		t.Fatalf("suspicious=%d want 1", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing basic headers: %v", rr.Header())
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("missing CSP")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS=%q", rr.Header().Get("Strict-Transport-Security"))
	}
}
