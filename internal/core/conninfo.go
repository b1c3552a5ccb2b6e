package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// connCacheTTL is how long a derived ConnectionInfo stays valid before it
// is re-derived from the instance configuration.
const connCacheTTL = 5 * time.Minute

// fingerprintLength is the number of hex characters kept from the settings
// digest. 16 characters (64 bits) is plenty to tell configurations apart
// while staying readable in logs.
const fingerprintLength = 16

// ConnectionInfo describes how to reach a running server. It is derived
// from the instance configuration and the port actually bound.
type ConnectionInfo struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DatabaseName string
}

// ConnectionString returns the libpq URL form, including the password.
func (ci ConnectionInfo) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s",
		ci.Username, ci.Password, ci.Host, ci.Port, ci.DatabaseName)
}

// SafeConnectionString is ConnectionString with the password masked, for
// logs and error messages.
func (ci ConnectionInfo) SafeConnectionString() string {
	return fmt.Sprintf("postgresql://%s:***@%s:%d/%s",
		ci.Username, ci.Host, ci.Port, ci.DatabaseName)
}

// JDBCURL returns the JDBC form with credentials in the query string.
func (ci ConnectionInfo) JDBCURL() string {
	return fmt.Sprintf("jdbc:postgresql://%s:%d/%s?user=%s&password=%s",
		ci.Host, ci.Port, ci.DatabaseName, ci.Username, ci.Password)
}

// forDatabase returns a copy of the descriptor pointing at another database
// on the same server.
func (ci ConnectionInfo) forDatabase(name string) ConnectionInfo {
	ci.DatabaseName = name
	return ci
}

// Fingerprint digests the connection-relevant settings (host, port,
// username, password) into a short stable hex string. Two instances with
// the same fingerprint are interchangeable endpoints apart from the
// database name.
func Fingerprint(host string, port int, username, password string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "host=%s;port=%d;user=%s;password=%s",
		host, port, username, password))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// connectionInfoLocked derives the current descriptor, serving it from the
// cache while the TTL holds. The caller must hold i.mu. The port is the
// bound port, so the descriptor is only meaningful after a successful
// start.
func (i *Instance) connectionInfoLocked() ConnectionInfo {
	now := i.now()
	if i.connInfo != nil && now.Before(i.connExpiry) {
		return *i.connInfo
	}
	info := ConnectionInfo{
		Host:         i.cfg.Host,
		Port:         i.boundPort,
		Username:     i.cfg.Username,
		Password:     i.cfg.Password,
		DatabaseName: i.cfg.Database,
	}
	i.connInfo = &info
	i.connExpiry = now.Add(connCacheTTL)
	return info
}

// ConnectionInfo returns the connection descriptor for the running server.
// Descriptors are cached for a few minutes; ClearConnectionCache forces
// re-derivation.
func (i *Instance) ConnectionInfo() (ConnectionInfo, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateRunning {
		return ConnectionInfo{}, ErrNotRunning
	}
	return i.connectionInfoLocked(), nil
}

// ClearConnectionCache drops the cached connection descriptor.
func (i *Instance) ClearConnectionCache() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connInfo = nil
	i.connExpiry = time.Time{}
}

// IsConnectionCacheValid reports whether a cached descriptor exists and its
// TTL has not lapsed.
func (i *Instance) IsConnectionCacheValid() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connInfo != nil && i.now().Before(i.connExpiry)
}

// ConfigHash returns the fingerprint of this instance's connection-relevant
// settings. It digests the configuration as requested, not as observed: a
// port of 0 hashes as 0 regardless of which port the kernel later assigns,
// so the hash never changes over the instance's lifetime. Computed lazily
// and cached.
func (i *Instance) ConfigHash() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.configHash == "" {
		i.configHash = Fingerprint(i.cfg.Host, i.cfg.Port, i.cfg.Username, i.cfg.Password)
	}
	return i.configHash
}
