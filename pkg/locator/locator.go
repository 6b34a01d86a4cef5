// Package locator finds the node executable across its known install locations.
package locator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// BinaryName is the executable produced by the CLI installer.
const BinaryName = "nexus-network"

// DefaultCandidates returns the ordered install locations of name for home.
// The installer default comes first, then historical locations, then system-wide ones.
func DefaultCandidates(home, name string) []string {
	return []string{
		filepath.Join(home, ".nexus", "bin", name),
		filepath.Join(home, ".nexus", name),
		filepath.Join(home, ".local", "bin", name),
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/root/.nexus/bin", name),
	}
}

// Locator searches candidate paths, then falls back to a PATH lookup.
type Locator struct {
	Candidates []string
	Name       string
	LookPath   ports.PathLookup
	Logger     *slog.Logger
}

// New creates a Locator for BinaryName. A nil lookup disables the PATH fallback.
func New(candidates []string, lookup ports.PathLookup, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Locator{
		Candidates: candidates,
		Name:       BinaryName,
		LookPath:   lookup,
		Logger:     logger,
	}
}

// Locate returns the first candidate that exists and is executable.
// There is no retry: a missing binary means the install failed.
func (l *Locator) Locate() (domain.BinaryLocation, bool) {
	for _, candidate := range l.Candidates {
		if IsExecutable(candidate) {
			l.Logger.Info("Binary found", "path", candidate)
			return domain.BinaryLocation(absolute(candidate)), true
		}
		l.Logger.Debug("Binary candidate rejected", "path", candidate)
	}

	if l.LookPath != nil {
		if path, err := l.LookPath(l.Name); err == nil {
			l.Logger.Info("Binary found on PATH", "path", path)
			return domain.BinaryLocation(absolute(path)), true
		}
	}

	l.Logger.Warn("Binary not found", "name", l.Name, "candidates", len(l.Candidates))
	return "", false
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// IsExecutable reports whether path is a regular file with any execute bit set.
func IsExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
