package monitor

import "time"

// Status is the last observed state of the external dependencies. In-process
// backends always report healthy.
type Status struct {
	Store      bool      `json:"store"`
	Cache      bool      `json:"cache"`
	Outbox     bool      `json:"outbox"`
	OutboxSize int       `json:"outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether the directory can serve requests.
func (s Status) Healthy() bool {
	return s.Store && s.Cache
}
