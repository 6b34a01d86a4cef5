package domain

import "time"

// Stage names a bootstrap step. It labels commands, logs, metrics and journal rows.
type Stage string

const (
	StageDetect       Stage = "detect"
	StageIdentity     Stage = "identity"
	StagePackages     Stage = "packages"
	StageToolchain    Stage = "toolchain"
	StageCLIInstall   Stage = "cli_install"
	StageLocate       Stage = "locate"
	StageRegistration Stage = "registration"
	StageSaveConfig   Stage = "save_config"
	StageLaunch       Stage = "launch"
	StageSupervise    Stage = "supervise"
)

// Command describes one external invocation.
// When Script is set it runs through "sh -c" and Name/Args are ignored.
type Command struct {
	Stage  Stage
	Name   string
	Args   []string
	Script string
	// Stdin is written to the child's standard input, which is then closed.
	Stdin string
	// Env holds extra KEY=VALUE entries appended to the child environment.
	Env []string
	// Timeout bounds the invocation; zero means unbounded.
	Timeout time.Duration
	// Tolerated marks failures that are logged and ignored by the caller.
	Tolerated bool
}

// Display renders the command for logs.
func (c Command) Display() string {
	if c.Script != "" {
		return c.Script
	}
	out := c.Name
	for _, a := range c.Args {
		out += " " + a
	}
	return out
}

// CommandOutcome is the observed result of one Command.
type CommandOutcome struct {
	Command  Command
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	// Tolerated is true when the command failed and the caller chose to continue.
	Tolerated bool
}

// Success reports a zero exit without timeout.
func (o CommandOutcome) Success() bool {
	return o.ExitCode == 0 && !o.TimedOut
}
