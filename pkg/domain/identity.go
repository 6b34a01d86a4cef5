package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which Identity variant a run resolves.
type Mode string

const (
	// ModeWallet registers a new user and node from a wallet address.
	ModeWallet Mode = "wallet"
	// ModeNodeID resumes an already registered node.
	ModeNodeID Mode = "node_id"
)

const (
	walletPrefix = "0x"
	walletLength = 42
)

// Identity is the credential used to start the node.
// mode tells how value is interpreted; construct it with NewWallet or NewNodeID.
type Identity struct {
	mode  Mode
	value string
}

// NewWallet validates addr and returns a wallet Identity.
func NewWallet(addr string) (Identity, error) {
	if err := ValidateWallet(addr); err != nil {
		return Identity{}, err
	}
	return Identity{mode: ModeWallet, value: addr}, nil
}

// NewNodeID returns a node identifier Identity. Any non-empty string is accepted.
func NewNodeID(id string) (Identity, error) {
	if id == "" {
		return Identity{}, fmt.Errorf("%w: node ID cannot be empty", ErrInvalidIdentityFormat)
	}
	return Identity{mode: ModeNodeID, value: id}, nil
}

// Mode returns the active variant. The zero Identity has an empty mode.
func (i Identity) Mode() Mode { return i.mode }

// Value returns the wallet address or node identifier.
func (i Identity) Value() string { return i.value }

// IsZero reports whether the identity is unresolved.
func (i Identity) IsZero() bool { return i.mode == "" }

// Masked returns a log-safe rendering of the identity.
// Wallets keep the first 10 and last 6 characters.
func (i Identity) Masked() string {
	if i.mode == ModeWallet && len(i.value) > 16 {
		return i.value[:10] + "..." + i.value[len(i.value)-6:]
	}
	return i.value
}

func (i Identity) String() string {
	if i.IsZero() {
		return "<unresolved>"
	}
	return string(i.mode) + ":" + i.Masked()
}

// IsValidWallet reports whether s is a 0x-prefixed, 42 character hex address.
func IsValidWallet(s string) bool {
	return ValidateWallet(s) == nil
}

// ValidateWallet explains why s is not a valid wallet address.
// The returned error wraps ErrInvalidIdentityFormat.
func ValidateWallet(s string) error {
	if !strings.HasPrefix(s, walletPrefix) {
		return fmt.Errorf("%w: wallet address must start with %q", ErrInvalidIdentityFormat, walletPrefix)
	}
	if len(s) != walletLength {
		return fmt.Errorf("%w: wallet address must be %d characters, got %d", ErrInvalidIdentityFormat, walletLength, len(s))
	}
	for idx, r := range s[len(walletPrefix):] {
		if !isHexDigit(r) {
			return fmt.Errorf("%w: invalid hex character %q at position %d", ErrInvalidIdentityFormat, r, idx+len(walletPrefix))
		}
	}
	return nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// ParseMode maps user-facing mode names onto a Mode.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", string(ModeWallet):
		return ModeWallet, nil
	case "2", string(ModeNodeID), "node-id", "nodeid":
		return ModeNodeID, nil
	default:
		return "", errors.New("mode must be 1 (wallet) or 2 (node_id)")
	}
}
