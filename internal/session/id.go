// Package session defines session identity, persisted state and metrics
// shapes, the durable Store contract, and the Manager that owns session
// discovery, resume, quarantine, and retention pruning.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// idDateLayout is the date portion of a session id: 20060102.
const idDateLayout = "20060102"

// ID identifies one workflow run: {module}-{yyyyMMdd}-{sequence}.
// The sequence disambiguates same-day restarts of the same module.
// IDs are immutable once created and round-trip through String/ParseID.
type ID struct {
	Module   string
	Date     time.Time
	Sequence int
}

// NewID builds an id for module on the given day with the given
// sequence number. The time portion of date is discarded.
func NewID(module string, date time.Time, sequence int) ID {
	y, m, d := date.Date()
	return ID{
		Module:   module,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Sequence: sequence,
	}
}

// String renders the id as {module}-{yyyyMMdd}-{sequence}.
func (id ID) String() string {
	return fmt.Sprintf("%s-%s-%d", id.Module, id.Date.Format(idDateLayout), id.Sequence)
}

// IsZero reports whether the id is the zero value.
func (id ID) IsZero() bool {
	return id.Module == "" && id.Date.IsZero() && id.Sequence == 0
}

// ParseID parses a session id string. Module names may themselves
// contain hyphens, so the date and sequence are taken from the last two
// hyphen-separated fields. Malformed strings return an error; ParseID
// and String are inverses for every id NewID can produce.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return ID{}, fmt.Errorf("malformed session id %q: want {module}-{yyyyMMdd}-{sequence}", s)
	}

	seqStr := parts[len(parts)-1]
	dateStr := parts[len(parts)-2]
	module := strings.Join(parts[:len(parts)-2], "-")
	if module == "" {
		return ID{}, fmt.Errorf("malformed session id %q: empty module name", s)
	}

	date, err := time.ParseInLocation(idDateLayout, dateStr, time.UTC)
	if err != nil {
		return ID{}, fmt.Errorf("malformed session id %q: bad date %q", s, dateStr)
	}

	seq, err := strconv.Atoi(seqStr)
	if err != nil || seq < 0 {
		return ID{}, fmt.Errorf("malformed session id %q: bad sequence %q", s, seqStr)
	}

	return NewID(module, date, seq), nil
}
