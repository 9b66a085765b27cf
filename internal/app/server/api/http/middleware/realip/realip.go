// Package realip подменяет RemoteAddr адресом клиента из заголовков прокси,
// но только если запрос пришел от доверенного прокси. Без списка доверенных
// прокси заголовки игнорируются и остается адрес TCP соединения.
package realip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var (
	xForwardedFor = http.CanonicalHeaderKey("X-Forwarded-For")
	xRealIP       = http.CanonicalHeaderKey("X-Real-IP")
)

type Resolver struct {
	trusted []netip.Prefix
}

func New(trusted []netip.Prefix) *Resolver {
	return &Resolver{trusted: trusted}
}

// Handler - замена chi middleware.RealIP с проверкой источника заголовков
func (r *Resolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ip, ok := r.clientIP(req); ok {
			req.RemoteAddr = ip
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Resolver) clientIP(req *http.Request) (string, bool) {
	peer, ok := parseAddr(req.RemoteAddr)
	if !ok || !r.isTrusted(peer) {
		return "", false
	}

	// X-Forwarded-For читается справа налево: левые записи присылает сам клиент
	if xff := req.Header.Values(xForwardedFor); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				return "", false
			}
			if !r.isTrusted(addr) {
				return addr.String(), true
			}
		}
		return "", false
	}

	if addr, ok := parseAddr(strings.TrimSpace(req.Header.Get(xRealIP))); ok {
		return addr.String(), true
	}

	return "", false
}

func (r *Resolver) isTrusted(addr netip.Addr) bool {
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr принимает "ip" и "ip:port"
func parseAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
