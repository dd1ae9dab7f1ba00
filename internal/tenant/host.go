// internal/tenant/host.go
//
// Host canonicalisation.
//
// Context
// -------
// Inbound hosts arrive in many shapes: a bare Host header
// (`Example.com:8080`), a configured URL (`https://www.example.com/`), or
// a copy-pasted domain with a trailing dot.  `Normalize` folds all of them
// into the one form tenant rows store:
//
//   - scheme, userinfo, path, query, and fragment are removed,
//   - a trailing dot and any leading `www.` labels are removed,
//   - the result is lower-cased.
//
// In production the port is dropped.  In dev mode the port is kept so
// `localhost:3001` and `localhost:3002` can address different tenants,
// and `PortAlias` maps a bare port to an alternate domain from config.
//
// Notes
// -----
//   - Normalize never fails.  When stripping leaves nothing, the trimmed,
//     lower-cased input is returned unchanged.
//   - Normalize is idempotent: Normalize(Normalize(h)) == Normalize(h).
//   - No logging here; caller decides what to log.
package tenant

import (
	"strings"
	"unicode"
)

// Normalizer canonicalises hosts.  The zero value is production mode
// with no port aliases.
type Normalizer struct {
	DevMode     bool
	PortAliases map[string]string // "3001" → "localhost:3001"
}

// Normalize returns the canonical form of raw.
func (n Normalizer) Normalize(raw string) string {
	base := strings.ToLower(strings.TrimSpace(raw))
	h := base

	if i := strings.Index(h, "://"); i != -1 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i != -1 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '@'); i != -1 {
		h = h[i+1:]
	}

	h = strings.TrimSpace(h)
	for strings.HasPrefix(h, "www.") {
		h = strings.TrimLeftFunc(h[len("www."):], unicode.IsSpace)
	}

	host, port := splitPort(h)
	host = strings.TrimRightFunc(host, func(r rune) bool { return r == '.' || unicode.IsSpace(r) })
	port = strings.TrimSpace(port)

	h = host
	if n.DevMode && port != "" && host != "" {
		h = host + ":" + port
	}
	if h == "" {
		return base
	}
	return h
}

// PortAlias returns the alternate domain configured for port.  Always
// false outside dev mode.
func (n Normalizer) PortAlias(port string) (string, bool) {
	if !n.DevMode || port == "" {
		return "", false
	}
	alias, ok := n.PortAliases[port]
	if !ok || alias == "" {
		return "", false
	}
	return n.Normalize(alias), true
}

// Port returns the port of an already-normalised host, or "".
func Port(host string) string {
	_, port := splitPort(host)
	return port
}

// Hostname returns host without its port.
func Hostname(host string) string {
	h, _ := splitPort(host)
	return h
}

// splitPort separates "host:port".  Bracketed IPv6 literals keep their
// brackets; bare IPv6 literals (more than one colon) have no port.
func splitPort(h string) (host, port string) {
	if strings.HasPrefix(h, "[") {
		end := strings.IndexByte(h, ']')
		if end == -1 {
			return h, ""
		}
		host, rest := h[:end+1], h[end+1:]
		if strings.HasPrefix(rest, ":") {
			return host, rest[1:]
		}
		return host, ""
	}
	if strings.Count(h, ":") != 1 {
		return h, ""
	}
	i := strings.IndexByte(h, ':')
	return h[:i], h[i+1:]
}
