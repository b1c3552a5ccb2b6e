// Package sentinel provides a const-declarable error type for sentinel
// errors that callers match with errors.Is.
package sentinel
