package outbox

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Item is one invitation mail waiting to be retried.
type Item struct {
	ID           string    `json:"id"`
	InvitationID string    `json:"invitation_id"`
	To           string    `json:"to"`
	ClaimLink    string    `json:"claim_link"`
	Retries      int       `json:"retries"`
	LastError    string    `json:"last_error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	key []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
