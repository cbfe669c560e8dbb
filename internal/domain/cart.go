package domain

import "github.com/shopspring/decimal"

// Dish is a menu item. The cart references dishes owned by the menu.
type Dish struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	IsActive    bool            `json:"isActive"`
}

// LineTotal is the price of quantity units at the dish's current price
func (d Dish) LineTotal(quantity int) decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartItem is one dish-plus-quantity line of the cart
type CartItem struct {
	Dish     Dish            `json:"dish"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// MenuRepository defines read access to a tenant's menu
type MenuRepository interface {
	ListDishes(tenantDomain string) ([]Dish, error)
	GetDish(tenantDomain, dishID string) (*Dish, error)
}
