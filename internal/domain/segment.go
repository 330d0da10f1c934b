package domain

import (
	"time"

	"github.com/google/uuid"
)

// Logical operators of an internal rule node
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// Comparators of a leaf rule node
const (
	CmpGt  = "gt"
	CmpLt  = "lt"
	CmpEq  = "eq"
	CmpNe  = "ne"
	CmpGte = "gte"
	CmpLte = "lte"
)

// Rule is a node of a segment's match tree. A node with a non-empty Op is an
// internal node combining Children; otherwise it is a leaf comparing Field against Value.
type Rule struct {
	Op       string  `json:"op,omitempty"`
	Children []*Rule `json:"children,omitempty"`
	Field    string  `json:"field,omitempty"`
	Cmp      string  `json:"cmp,omitempty"`
	Value    any     `json:"value,omitempty"`
}

// IsGroup reports whether the node is an internal AND/OR node
func (r *Rule) IsGroup() bool {
	return r != nil && r.Op != ""
}

// Segment is a named audience definition
type Segment struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Rules        *Rule     `json:"rules"`
	AudienceSize int64     `json:"audience_size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
