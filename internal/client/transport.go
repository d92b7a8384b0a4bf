package client

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vulnagent/internal/shared/logging"
)

// DefaultTimeout bounds one agent round trip when the config leaves it unset.
const DefaultTimeout = 300 * time.Second

// NewHTTPClient returns an http.Client for calls to the agent service.
//
// It respects HTTP(S)_PROXY/NO_PROXY, except that loopback agent URLs are
// always dialled directly.
func NewHTTPClient(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(logger),
	}
}

// Transport returns an http.Transport clone with the loopback proxy policy.
func Transport(logger logging.Logger) *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{Proxy: proxyFunc(logger)}
	}
	transport := base.Clone()
	transport.Proxy = proxyFunc(logger)
	return transport
}

var bypassLogged sync.Map // map[string]struct{}

func proxyFunc(logger logging.Logger) func(*http.Request) (*url.URL, error) {
	log := logging.OrNop(logger)
	return func(req *http.Request) (*url.URL, error) {
		if req == nil || req.URL == nil {
			return http.ProxyFromEnvironment(req)
		}
		if isLoopbackHost(req.URL.Hostname()) {
			host := req.URL.Host
			if _, loaded := bypassLogged.LoadOrStore(host, struct{}{}); !loaded {
				log.Debug("Agent URL %s is loopback; dialling without proxy", host)
			}
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}
}

func isLoopbackHost(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsUnspecified()
}
