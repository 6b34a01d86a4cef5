// Package installer prepares the host: OS packages, the Rust toolchain and the Nexus CLI.
//
// Package installation is best-effort. Toolchain and CLI failures are fatal and reported as
// domain.StageError values so the orchestrator can print the captured stderr.
package installer
