// Package netutil provides TCP port allocation for embedded PostgreSQL
// servers that request an automatically assigned port.
package netutil
