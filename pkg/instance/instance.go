package instance

import (
	"os"

	"github.com/brametal/chapas-backend/pkg/env"
)

// GetID returns the process instance identifier used in log fields.
func GetID() string {
	if id := env.First(env.Prefix+"INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
