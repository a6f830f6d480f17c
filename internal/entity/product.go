package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is owned by the catalog; this core only reads it to validate stock
// and snapshot the current price. StockQuantity is the single point of
// contention and is only ever adjusted through the repository's conditional
// stock update.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}
