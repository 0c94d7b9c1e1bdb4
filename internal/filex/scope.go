// Package filex implements scoped temporary-resource management.
//
// Every transformation request acquires one Scope; all intermediate files
// and directories the request creates live under the scope's root and are
// removed together when the scope is closed. A leaked temp file is treated
// as a correctness bug, so Close is expected to run on every exit path,
// usually via defer right after NewScope.
package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scope is a uniquely named temporary directory owning every resource
// acquired through it. Names incorporate a fresh random identifier per
// acquisition, so concurrent requests never collide.
type Scope struct {
	root   string
	closed bool
}

// NewScope creates the scope's root directory under baseDir. If baseDir is
// empty, the system temp directory is used.
func NewScope(baseDir string) (*Scope, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	root := filepath.Join(baseDir, "docmill-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &Scope{root: root}, nil
}

// Root returns the scope's root directory.
func (s *Scope) Root() string {
	return s.root
}

// File reserves a unique file path inside the scope, creating an empty
// file so the name is taken immediately. suffix typically carries the
// extension, e.g. ".pdf".
func (s *Scope) File(suffix string) (string, error) {
	if s.closed {
		return "", fmt.Errorf("scope %s is closed", s.root)
	}
	p := filepath.Join(s.root, uuid.NewString()+suffix)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return p, nil
}

// Dir creates a unique subdirectory inside the scope.
func (s *Scope) Dir() (string, error) {
	if s.closed {
		return "", fmt.Errorf("scope %s is closed", s.root)
	}
	p := filepath.Join(s.root, uuid.NewString())
	if err := os.Mkdir(p, 0o700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return p, nil
}

// Close removes the scope's root and everything beneath it. It is
// idempotent. Callers log the returned error but must never let it mask
// the operation's own failure.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("remove temp scope %s: %w", s.root, err)
	}
	return nil
}
