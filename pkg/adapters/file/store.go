// Package file persists the node configuration on the local filesystem.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// ErrNoConfig is returned by Load when nothing has been saved yet.
var ErrNoConfig = errors.New("node config not found")

// Store implements ports.NodeConfigStore as a KEY=VALUE text file.
type Store struct {
	Path string
}

var _ ports.NodeConfigStore = (*Store)(nil)

// New creates a Store writing to path.
// If path is empty, it defaults to ".nexus/config.txt".
func New(path string) *Store {
	if path == "" {
		path = filepath.Join(".nexus", "config.txt")
	}
	return &Store{Path: path}
}

// Encode renders the file content for id.
func Encode(id domain.Identity) ([]byte, error) {
	switch id.Mode() {
	case domain.ModeWallet:
		return []byte("METHOD=wallet\nWALLET=" + id.Value() + "\n"), nil
	case domain.ModeNodeID:
		return []byte("METHOD=node_id\nNODE_ID=" + id.Value() + "\n"), nil
	default:
		return nil, fmt.Errorf("cannot encode unresolved identity")
	}
}

// Decode parses content written by Encode. Unknown keys and blank lines are ignored.
func Decode(data []byte) (domain.Identity, error) {
	values := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return domain.Identity{}, fmt.Errorf("malformed line %q", line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return domain.Identity{}, err
	}

	switch values["METHOD"] {
	case "wallet":
		return domain.NewWallet(values["WALLET"])
	case "node_id":
		return domain.NewNodeID(values["NODE_ID"])
	default:
		return domain.Identity{}, fmt.Errorf("unknown METHOD %q", values["METHOD"])
	}
}

// Save writes the identity atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, id domain.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(id)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(s.Path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", s.Path, err)
	}
	return nil
}

// Load reads the saved identity.
func (s *Store) Load(ctx context.Context) (domain.Identity, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Identity{}, ErrNoConfig
		}
		return domain.Identity{}, fmt.Errorf("failed to read node config: %w", err)
	}
	id, err := Decode(data)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid node config %s: %w", s.Path, err)
	}
	return id, nil
}
