// Package identity resolves the credential the node is started with.
package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// Resolver obtains a wallet address or node identifier from the environment,
// falling back to interactive prompts only in local runs.
type Resolver struct {
	LookupEnv func(key string) (string, bool)
	WalletEnv string
	NodeIDEnv string
	Prompter  *Prompter
	Logger    *slog.Logger
}

// NewResolver creates a Resolver bound to the process environment.
// A nil prompter means prompting is impossible even locally.
func NewResolver(walletEnv, nodeIDEnv string, prompter *Prompter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		LookupEnv: os.LookupEnv,
		WalletEnv: walletEnv,
		NodeIDEnv: nodeIDEnv,
		Prompter:  prompter,
		Logger:    logger,
	}
}

func (r *Resolver) env(key string) string {
	if key == "" {
		return ""
	}
	v, _ := r.LookupEnv(key)
	return strings.TrimSpace(v)
}

// ChooseMode decides which identity variant this run resolves.
// A node ID in the environment means resume; a wallet means registration;
// otherwise local runs ask and unattended runs fail with ErrMissingIdentity.
func (r *Resolver) ChooseMode(ctx context.Context, env domain.Environment) (domain.Mode, error) {
	if r.env(r.NodeIDEnv) != "" {
		return domain.ModeNodeID, nil
	}
	if r.env(r.WalletEnv) != "" {
		return domain.ModeWallet, nil
	}
	if env.Production() || r.Prompter == nil {
		return "", r.missing(env)
	}

	r.Prompter.Say("Choose setup method:")
	r.Prompter.Say("  1) New registration with wallet address")
	r.Prompter.Say("  2) Use existing node ID")
	for {
		answer, err := r.Prompter.ReadLine(ctx, "Choose option (1 or 2): ")
		if err != nil {
			return "", domain.NewStageError(domain.StageIdentity, domain.ErrInputCancelled, err)
		}
		mode, err := domain.ParseMode(answer)
		if err == nil {
			return mode, nil
		}
		r.Prompter.Say("Choose 1 or 2 only.")
	}
}

// Resolve returns the identity for mode. It is idempotent for a fixed environment value.
func (r *Resolver) Resolve(ctx context.Context, env domain.Environment, mode domain.Mode) (domain.Identity, error) {
	key := r.WalletEnv
	if mode == domain.ModeNodeID {
		key = r.NodeIDEnv
	}

	if v := r.env(key); v != "" {
		id, err := build(mode, v)
		if err != nil {
			r.Logger.Error("Rejected identity from environment", "var", key, "error", err)
			return domain.Identity{}, domain.NewStageError(domain.StageIdentity, domain.ErrInvalidIdentityFormat, err)
		}
		r.Logger.Info("Identity from environment", "var", key, "identity", id.Masked())
		return id, nil
	}

	if env.Production() || r.Prompter == nil {
		return domain.Identity{}, r.missing(env)
	}
	return r.prompt(ctx, mode)
}

func (r *Resolver) prompt(ctx context.Context, mode domain.Mode) (domain.Identity, error) {
	question := "Enter your wallet address: "
	if mode == domain.ModeNodeID {
		question = "Enter your node ID: "
	} else {
		r.Prompter.Say("Format: 0x... (42 characters)")
	}

	for {
		answer, err := r.Prompter.ReadLine(ctx, question)
		if err != nil {
			r.Logger.Warn("Identity input cancelled", "error", err)
			return domain.Identity{}, domain.NewStageError(domain.StageIdentity, domain.ErrInputCancelled, err)
		}
		id, err := build(mode, answer)
		if err == nil {
			r.Logger.Info("Identity from prompt", "identity", id.Masked())
			return id, nil
		}
		if !errors.Is(err, domain.ErrInvalidIdentityFormat) {
			return domain.Identity{}, domain.NewStageError(domain.StageIdentity, domain.ErrInvalidIdentityFormat, err)
		}
		r.Prompter.Say("Invalid input: %v", err)
	}
}

func build(mode domain.Mode, value string) (domain.Identity, error) {
	if mode == domain.ModeNodeID {
		return domain.NewNodeID(value)
	}
	return domain.NewWallet(value)
}

func (r *Resolver) missing(env domain.Environment) error {
	r.Logger.Error("No identity available", "environment", env, "wallet_var", r.WalletEnv, "node_id_var", r.NodeIDEnv)
	return domain.Failf(domain.StageIdentity, domain.ErrMissingIdentity,
		"set %s=0x... (or %s=<id>) for %s runs", r.WalletEnv, r.NodeIDEnv, env)
}
