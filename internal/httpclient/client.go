// Package httpclient configures the outbound HTTP client used to call CEDA
// and other upstream OPeNDAP/OpenSearch endpoints.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewOutbound builds an *http.Client tuned for a connection-capped fan-out
// against a small number of upstream hosts: keep-alives reused aggressively,
// short dial/TLS timeouts so a single unreachable mirror fails fast.
func NewOutbound(maxConns int, timeout time.Duration) *http.Client {
	if maxConns <= 0 {
		maxConns = 50
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          maxConns,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
