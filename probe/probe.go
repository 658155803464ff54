// Package probe checks if a device responds at all.
package probe

import (
	"context"
	"crypto/tls"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// Prober - Reachability check bound to one endpoint.
type Prober struct {
	Endpoint string
	Timeout  time.Duration
}

// IsReachable - See IsReachable.
func (prober Prober) IsReachable(ctx context.Context) bool {
	return IsReachable(ctx, prober.Endpoint, prober.Timeout)
}

// IsReachable - Make a single attempt to reach the endpoint within the timeout.
// HTTP(S) endpoints are fetched with certificate verification disabled and any response counts.
// Other endpoints (e.g. "ssh://host:22") only need to accept a TCP connection.
// Never fails, any error means unreachable.
func IsReachable(ctx context.Context, endpoint string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpointURL, err := url.Parse(endpoint)
	if err != nil || endpointURL.Host == "" {
		log.WithField("endpoint", endpoint).Trace("Malformed probe endpoint")
		return false
	}

	switch endpointURL.Scheme {
	case "http", "https":
		return probeHTTP(ctx, endpointURL, timeout)
	default:
		return probeTCP(ctx, endpointURL)
	}
}

func probeHTTP(ctx context.Context, endpointURL *url.URL, timeout time.Duration) bool {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: true}, // Devices use self-signed certificates
			DisableKeepAlives: true,
		},
	}
	defer client.CloseIdleConnections()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return false
	}
	response, err := client.Do(request)
	if err != nil {
		log.WithError(err).WithField("endpoint", endpointURL.String()).Trace("Probe failed")
		return false
	}
	io.Copy(ioutil.Discard, io.LimitReader(response.Body, 1<<16))
	response.Body.Close()
	return true
}

func probeTCP(ctx context.Context, endpointURL *url.URL) bool {
	address := endpointURL.Host
	if endpointURL.Port() == "" {
		address = net.JoinHostPort(endpointURL.Hostname(), "22")
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		log.WithError(err).WithField("endpoint", address).Trace("Probe failed")
		return false
	}
	conn.Close()
	return true
}
