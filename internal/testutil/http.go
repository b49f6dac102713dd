package testutil

import (
	"net"
	"net/http"
	"time"
)

// NoProxyClient returns an HTTP client that never goes through a proxy.
// Tests talk to servers on loopback, and an HTTP_PROXY inherited from the
// developer's environment would otherwise intercept those requests.
func NoProxyClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			Proxy: nil,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}
