package cache

import (
	"github.com/google/uuid"
)

// Keys are namespaced so a shared Redis can host other services.
const namespace = "scribe:"

// JobKey addresses the snapshot of a job's latest persisted state.
func JobKey(jobID uuid.UUID) string {
	return namespace + "job:" + jobID.String()
}

// RateLimitKey addresses the per-minute request counter of one API key.
func RateLimitKey(keyPrefix string) string {
	return namespace + "ratelimit:" + keyPrefix
}
