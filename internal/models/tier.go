package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier represents one level of a creator's subscription catalog.
// A creator may define any subset of levels 1..3; gaps are legal.
type Tier struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	CreatorID   uuid.UUID        `json:"creator_id" db:"creator_id"`
	Level       int              `json:"level" db:"level"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description,omitempty" db:"description"`
	Price       *decimal.Decimal `json:"price,omitempty" db:"price"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
