// Package process manages the lifecycle of the spawned postgres server
// process: starting it with captured log files, waiting for readiness, and
// stopping it with a graceful-then-forced signal sequence.
package process
