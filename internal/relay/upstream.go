// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"net/url"
	"strings"

	pnet "github.com/ManuGH/relay-extension/internal/platform/net"
)

// UpstreamFromDSN derives the relay upstream origin from a DSN of the form
// scheme://publickey@host[:port]/projectid. The port is kept only when it
// differs from the scheme's default. ok is false for empty or invalid DSNs.
func UpstreamFromDSN(dsn string) (string, bool) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", false
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Hostname() == "" || u.User == nil || u.User.Username() == "" {
		return "", false
	}
	if strings.Trim(u.Path, "/") == "" {
		// no project id
		return "", false
	}
	return pnet.Origin(u), true
}
