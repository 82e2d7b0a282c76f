package instance

import (
	"os"

	"github.com/leasewise/leasewise-backend/pkg/env"
)

// GetID returns the worker instance identifier. It prefers LEASEWISE_WORKER_ID,
// then the hostname, then a fixed default.
func GetID() string {
	if id := env.Get("LEASEWISE_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
