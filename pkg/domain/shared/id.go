package shared

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ID is the identifier type for all domain entities. It wraps a UUID so
// entity ids cannot be mixed up with arbitrary strings in signatures.
type ID struct {
	value uuid.UUID
}

// NewID returns a fresh random ID.
func NewID() ID {
	return ID{value: uuid.New()}
}

// IDFromString parses s as a UUID.
func IDFromString(s string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid id format: %w", err)
	}
	return ID{value: v}, nil
}

func (id ID) String() string { return id.value.String() }

// IsZero reports whether the ID has never been assigned.
func (id ID) IsZero() bool { return id.value == uuid.Nil }

// Equals reports whether two IDs name the same entity.
func (id ID) Equals(other ID) bool { return id.value == other.value }

// Value implements driver.Valuer; ids are stored as their text form.
func (id ID) Value() (driver.Value, error) {
	return id.value.String(), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		id.value = parsed
		return nil
	case []byte:
		parsed, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		id.value = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into ID", src)
	}
}

// MarshalJSON renders the ID as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(id.String())), nil
}

// UnmarshalJSON parses a JSON string into the ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid id format")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}
