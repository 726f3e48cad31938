package location

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TagSupportsVisits marks locations at which visits are recorded.
const TagSupportsVisits = "Visit Location"

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrNoVisitLocation  = errors.New("no location supporting visits found")
)

// Location maps to the location table, with its tags from location_tag_map.
type Location struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	ParentID  *uuid.UUID `db:"parent_location_id" json:"parent_location_id,omitempty"`
	Retired   bool       `db:"retired" json:"retired"`
	Tags      []string   `json:"tags,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

func (l *Location) HasTag(name string) bool {
	for _, t := range l.Tags {
		if t == name {
			return true
		}
	}
	return false
}
