/*
Package ports defines the driven ports (interfaces) of the nexus bootstrapper.

These interfaces decouple the bootstrap stages from the host: subprocesses,
executable lookup, heartbeat sinks, distributed locks and run journals can all
be swapped for fakes in tests or for other backends in production.

# Key Interfaces

  - Executor: Runs an external command to completion or starts a long-lived child.
  - PathLookup: Resolves an executable name the way `which` does.
  - HeartbeatSink: Receives liveness beats while the node is supervised.
  - DistributedLocker: Serialises registration across replicas.
  - OutcomeObserver: Sees every CommandOutcome (metrics, journal).
*/
package ports
