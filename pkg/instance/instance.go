package instance

import (
	"os"

	"github.com/angelmondragon/pricelist-backend/pkg/env"
)

// GetID identifies the running process in logs: an explicit id, then the
// platform dyno name, then the hostname.
func GetID() string {
	if id, ok := env.First("PRICELIST_INSTANCE_ID", "DYNO"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
