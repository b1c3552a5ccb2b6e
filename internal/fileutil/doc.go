// Package fileutil provides small filesystem helpers for managing server
// data directories and the files inside them.
package fileutil
