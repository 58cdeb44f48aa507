// Package vectorstore is the seam for the Oracle AI Vector DB side of the
// pipeline. Vector search has not shipped; the adapter validates
// configuration and keeps the interface in place so a real driver can land
// behind it.
package vectorstore

import (
	"errors"
	"fmt"
)

// ErrNotConfigured reports that no DSN was supplied.
var ErrNotConfigured = errors.New("oracle vector store not configured: set ORACLE_DSN")

// ErrUnavailable reports that the adapter has no driver wired in.
var ErrUnavailable = errors.New("oracle vector store driver not wired: vector operations are a placeholder")

// Store is the vector-database seam.
type Store interface {
	Connect() error
	TestConnection() error
	Close() error
}

// OracleStore is the placeholder Oracle adapter. Connect distinguishes a
// missing DSN from a missing driver so callers can report which one the
// operator needs to fix.
type OracleStore struct {
	dsn       string
	connected bool
}

// NewOracleStore builds the adapter from a DSN of the usual
// user/password@host:port/service form. Empty is allowed; Connect reports it.
func NewOracleStore(dsn string) *OracleStore {
	return &OracleStore{dsn: dsn}
}

// Connect validates the configuration. Without a DSN it returns
// ErrNotConfigured; with one it returns ErrUnavailable until a driver
// exists to dial it.
func (s *OracleStore) Connect() error {
	if s.dsn == "" {
		return ErrNotConfigured
	}
	return ErrUnavailable
}

// TestConnection verifies an established connection.
func (s *OracleStore) TestConnection() error {
	if !s.connected {
		return fmt.Errorf("not connected to Oracle vector store")
	}
	return nil
}

// Close releases the connection if one was established.
func (s *OracleStore) Close() error {
	s.connected = false
	return nil
}
