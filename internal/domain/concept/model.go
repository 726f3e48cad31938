package concept

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmrAPISource is the reference-term source under which this module's
// well-known concepts are mapped.
const EmrAPISource = "org.openmrs.module.emrapi"

var (
	ErrConceptNotFound = errors.New("concept not found")
	ErrInvalidKey      = errors.New("invalid concept key")
)

// Concept maps to the concept table.
type Concept struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Retired   bool      `db:"retired" json:"retired"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Key identifies a concept through a reference-term mapping, written
// "source:code" (e.g. "org.openmrs.module.emrapi:Admit to hospital").
type Key struct {
	Source string
	Code   string
}

// ParseKey splits a "source:code" string on its first colon.
func ParseKey(s string) (Key, error) {
	source, code, ok := strings.Cut(s, ":")
	source = strings.TrimSpace(source)
	code = strings.TrimSpace(code)
	if !ok || source == "" || code == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{Source: source, Code: code}, nil
}

// EmrAPIKey builds a key in the module's own source.
func EmrAPIKey(code string) Key {
	return Key{Source: EmrAPISource, Code: code}
}

func (k Key) String() string {
	return k.Source + ":" + k.Code
}
