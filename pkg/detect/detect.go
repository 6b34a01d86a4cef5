// Package detect classifies the runtime context of the bootstrapper.
package detect

import (
	"os"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
)

// DefaultCloudVars are the managed-cloud signal variables. Presence alone counts.
var DefaultCloudVars = []string{"RAILWAY_PROJECT_ID", "RAILWAY_SERVICE_ID", "RAILWAY_ENVIRONMENT"}

// DefaultMarker is the file container runtimes drop at the filesystem root.
const DefaultMarker = "/.dockerenv"

// Detector is a pure function of the environment variables and one marker file.
type Detector struct {
	LookupEnv func(key string) (string, bool)
	Stat      func(name string) (os.FileInfo, error)
	CloudVars []string
	Marker    string
}

// New returns a Detector bound to the process environment and filesystem.
func New(cloudVars []string, marker string) *Detector {
	if len(cloudVars) == 0 {
		cloudVars = DefaultCloudVars
	}
	if marker == "" {
		marker = DefaultMarker
	}
	return &Detector{
		LookupEnv: os.LookupEnv,
		Stat:      os.Stat,
		CloudVars: cloudVars,
		Marker:    marker,
	}
}

// Detect returns the environment. Cloud signals take precedence over the container marker.
func (d *Detector) Detect() domain.Environment {
	for _, name := range d.CloudVars {
		if _, ok := d.LookupEnv(name); ok {
			return domain.EnvManagedCloud
		}
	}
	if d.Marker != "" {
		if _, err := d.Stat(d.Marker); err == nil {
			return domain.EnvContainerized
		}
	}
	return domain.EnvLocal
}
