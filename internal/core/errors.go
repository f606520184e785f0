package core

import (
	"errors"
	"fmt"
)

// ErrNotConfigured marks a best-effort dependency that has no credential
// and silently degrades to a no-op.
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError wraps a failed or malformed model-provider call.
// It is surfaced to the user as a single inline diagnostic chunk.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Err: err}
}

// MemoryStoreError wraps a durable-store failure. Propagated to callers
// of user-initiated rule CRUD; swallowed on best-effort paths.
type MemoryStoreError struct {
	Op  string
	Err error
}

func (e *MemoryStoreError) Error() string {
	return fmt.Sprintf("memory store %s: %v", e.Op, e.Err)
}

func (e *MemoryStoreError) Unwrap() error {
	return e.Err
}

func NewMemoryStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryStoreError{Op: op, Err: err}
}
