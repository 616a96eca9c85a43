package audit

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is one audit record.
type Event struct {
	// ID is a ULID; it sorts by creation time.
	ID        string
	Action    string
	UserID    string
	Details   map[string]any
	CreatedAt time.Time
}

// newEventID returns a ULID stamped with now.
func newEventID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

func copyDetails(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
