package nexusbootstrap

import _ "embed"

// Version is the release of nexus-bootstrap.
//
//go:embed VERSION
var Version string
