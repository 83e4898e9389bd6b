package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ElectionID identifies an election across storage and commitments.
type ElectionID uuid.UUID

// NewElectionID returns a fresh random election identifier.
func NewElectionID() ElectionID {
	return ElectionID(uuid.New())
}

// ParseElectionID parses the canonical uuid text form.
func ParseElectionID(s string) (ElectionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ElectionID{}, fmt.Errorf("invalid election id %q: %w", s, err)
	}
	return ElectionID(id), nil
}

// Bytes returns the 16 raw bytes of the identifier.
func (e ElectionID) Bytes() []byte {
	b := make([]byte, len(e))
	copy(b, e[:])
	return b
}

// SetBytes loads the identifier from its 16 raw bytes.
func (e *ElectionID) SetBytes(b []byte) error {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return err
	}
	*e = ElectionID(id)
	return nil
}

func (e ElectionID) String() string {
	return uuid.UUID(e).String()
}

func (e ElectionID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *ElectionID) UnmarshalText(data []byte) error {
	id, err := ParseElectionID(string(data))
	if err != nil {
		return err
	}
	*e = id
	return nil
}
