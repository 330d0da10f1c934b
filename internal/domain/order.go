package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to orders submitted without a currency
const DefaultCurrency = "INR"

// Order represents a materialized order owned by a customer
type Order struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
}
