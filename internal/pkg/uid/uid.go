// Package uid groups the identifier generators used by the application:
// time-ordered UUID strings for correlation and snowflake int64s for rows.
package uid

import (
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}

// UUID generates RFC 4122 UUID strings.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUIDv7 string, falling back to v4 when the
// monotonic source fails.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Snowflake generates sortable int64 IDs safe across processes.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a snowflake generator for the given node number.
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Snowflake{node: node}, nil
}

// Generate returns a new snowflake ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
