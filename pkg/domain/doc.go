/*
Package domain contains the core domain models for the nexus bootstrapper.

It defines the values that flow between the bootstrap stages. This package is
kept pure and free of I/O, so every stage can be tested without touching the
host.

# Key Entities

  - Environment: Where the bootstrapper runs (local, containerized, managed cloud).
  - Identity: The credential used to start the node (wallet address or node ID).
  - BinaryLocation: The resolved path of the node executable.
  - Command / CommandOutcome: A subprocess request and its observed result.
  - StageError: A classified failure of one bootstrap stage.
*/
package domain
