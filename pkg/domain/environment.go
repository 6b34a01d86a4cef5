package domain

// Environment classifies the runtime context of the bootstrapper.
// It is detected once per run and never re-evaluated.
type Environment int

const (
	EnvLocal Environment = iota
	EnvContainerized
	EnvManagedCloud
)

func (e Environment) String() string {
	switch e {
	case EnvLocal:
		return "local"
	case EnvContainerized:
		return "containerized"
	case EnvManagedCloud:
		return "managed-cloud"
	default:
		return "unknown"
	}
}

// Production reports whether the environment must run unattended.
// Production environments never prompt and keep the node supervised.
func (e Environment) Production() bool {
	return e != EnvLocal
}
