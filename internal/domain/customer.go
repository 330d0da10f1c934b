package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer represents a materialized customer record
type Customer struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	TotalSpend   float64    `json:"total_spend"`
	Visits       int64      `json:"visits"`
	LastOrderAt  *time.Time `json:"last_order_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FirstName returns the first word of the customer's name, or "" when the name is blank
func (c *Customer) FirstName() string {
	fields := strings.Fields(c.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// CustomerFields lists the attributes a segment rule may address
var CustomerFields = []string{
	"id", "name", "email", "phone", "total_spend", "visits",
	"last_order_at", "last_active_at", "created_at", "updated_at",
}

// IsCustomerField reports whether name is one of CustomerFields
func IsCustomerField(name string) bool {
	for _, f := range CustomerFields {
		if f == name {
			return true
		}
	}
	return false
}

// Field returns the value of a rule-addressable attribute. The second result is false
// when the attribute is unknown or unset.
func (c *Customer) Field(name string) (any, bool) {
	switch name {
	case "id":
		return c.ID.String(), true
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "phone":
		if c.Phone == "" {
			return nil, false
		}
		return c.Phone, true
	case "total_spend":
		return c.TotalSpend, true
	case "visits":
		return c.Visits, true
	case "last_order_at":
		return optionalTime(c.LastOrderAt)
	case "last_active_at":
		return optionalTime(c.LastActiveAt)
	case "created_at":
		return c.CreatedAt, true
	case "updated_at":
		return c.UpdatedAt, true
	default:
		return nil, false
	}
}

func optionalTime(t *time.Time) (any, bool) {
	if t == nil {
		return nil, false
	}
	return *t, true
}
