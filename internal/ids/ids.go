package ids

import "github.com/segmentio/ksuid"

// New returns a time-ordered identifier for queued tasks.
func New() string {
	return ksuid.New().String()
}
