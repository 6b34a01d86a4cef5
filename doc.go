/*
Package nexusbootstrap installs, registers and runs a Nexus network node.

A bootstrap run detects where it is running (a developer machine, a container or a managed
cloud service), resolves the node identity, installs the build prerequisites, the Rust
toolchain and the Nexus CLI, locates the nexus-network binary and starts it.

# Identity

A wallet address (WALLET_ADDRESS) registers a new user and node before starting; a node
identifier (NODE_ID) resumes an existing node. Local runs prompt when neither is set;
unattended runs fail instead.

# Supervision

Local runs wait for the node and exit with it. Elsewhere the bootstrapper stays in the
foreground next to the node, logging a liveness line every heartbeat interval, until it is
signalled; the node is then terminated gracefully.

# Usage

	nexus-bootstrap            # full bootstrap
	nexus-bootstrap detect     # print the detected environment
	nexus-bootstrap locate     # print the node binary path
	nexus-bootstrap history    # list journaled runs

The command is assembled by internal/cli from the packages under pkg/.
*/
package nexusbootstrap
