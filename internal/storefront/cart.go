package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrCheckoutPending = errors.New("a checkout is already in progress")
)

// OrderPlacer submits orders to the API
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

// Customer is the contact data collected at checkout
type Customer struct {
	Name  string
	Phone string
	Notes string
}

type cartPayload struct {
	Items []domain.CartItem `json:"items"`
}

// Cart is the shopping cart of this client. Items are written through to
// the store on every change. Totals are always derived from the items.
type Cart struct {
	kv      domain.KeyValueStore
	notices *Notices
	logger  *slog.Logger

	mu    sync.Mutex
	items []domain.CartItem
	open  bool

	checkingOut bool
}

// OpenCart loads the persisted cart. An unreadable payload gives an empty cart.
func OpenCart(ctx context.Context, kv domain.KeyValueStore, notices *Notices, logger *slog.Logger) (*Cart, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cart{kv: kv, notices: notices, logger: logger}

	raw, ok, err := kv.Get(ctx, CartStorageKey)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if !ok {
		return c, nil
	}

	var payload cartPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.Warn("ignoring corrupt stored cart", slog.String("error", err.Error()))
		return c, nil
	}
	c.items = normalizeItems(payload.Items)
	return c, nil
}

// normalizeItems merges duplicate dishes, drops empty lines and recomputes subtotals
func normalizeItems(in []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(in))
	index := make(map[string]int, len(in))
	for _, it := range in {
		if it.Dish.ID == "" || it.Quantity < 1 {
			continue
		}
		if i, ok := index[it.Dish.ID]; ok {
			out[i].Quantity += it.Quantity
			out[i].Dish = it.Dish
			out[i].Subtotal = it.Dish.LineTotal(out[i].Quantity)
			continue
		}
		it.Subtotal = it.Dish.LineTotal(it.Quantity)
		index[it.Dish.ID] = len(out)
		out = append(out, it)
	}
	return out
}

// AddItem adds quantity of dish, merging into an existing line. The line's
// subtotal follows the price of the dish passed in. Inactive dishes are
// refused with a notice and leave the cart untouched.
func (c *Cart) AddItem(ctx context.Context, dish domain.Dish, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if !dish.IsActive {
		c.notices.Push(domain.NoticeDestructive, "Not available", fmt.Sprintf("%s is not available right now.", dish.Name))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := false
	for i := range c.items {
		if c.items[i].Dish.ID == dish.ID {
			c.items[i].Quantity += quantity
			c.items[i].Dish = dish
			c.items[i].Subtotal = dish.LineTotal(c.items[i].Quantity)
			merged = true
			break
		}
	}
	if !merged {
		c.items = append(c.items, domain.CartItem{Dish: dish, Quantity: quantity, Subtotal: dish.LineTotal(quantity)})
	}

	metrics.ObserveCartMutation("add")
	if merged {
		c.notices.Push(domain.NoticeSuccess, "Quantity updated", fmt.Sprintf("%s quantity updated in your cart.", dish.Name))
	} else {
		c.notices.Push(domain.NoticeSuccess, "Added to cart", fmt.Sprintf("%s was added to your cart.", dish.Name))
	}
	return c.persistLocked(ctx)
}

// RemoveItem drops the line for dishID. Removing an absent dish is not an error.
func (c *Cart) RemoveItem(ctx context.Context, dishID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, dishID)
}

func (c *Cart) removeLocked(ctx context.Context, dishID string) error {
	name := ""
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.Dish.ID == dishID {
			name = it.Dish.Name
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept

	metrics.ObserveCartMutation("remove")
	msg := "The item was removed from your cart."
	if name != "" {
		msg = fmt.Sprintf("%s was removed from your cart.", name)
	}
	c.notices.Push(domain.NoticeInfo, "Removed from cart", msg)
	return c.persistLocked(ctx)
}

// UpdateQuantity sets the quantity of dishID; anything below 1 removes the line
func (c *Cart) UpdateQuantity(ctx context.Context, dishID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 1 {
		return c.removeLocked(ctx, dishID)
	}
	for i := range c.items {
		if c.items[i].Dish.ID == dishID {
			c.items[i].Quantity = quantity
			c.items[i].Subtotal = c.items[i].Dish.LineTotal(quantity)
			metrics.ObserveCartMutation("update")
			return c.persistLocked(ctx)
		}
	}
	return nil
}

// Clear empties the cart and closes the panel
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.open = false
	metrics.ObserveCartMutation("clear")
	c.notices.Push(domain.NoticeInfo, "Cart cleared", "All items were removed from your cart.")
	return c.persistLocked(ctx)
}

// Checkout submits the cart as an order for tenant. The lock is not held
// during the API call. Once the order is accepted the ordered quantities
// are taken out of the cart; lines added meanwhile stay.
func (c *Cart) Checkout(ctx context.Context, api OrderPlacer, tenant string, customer Customer) (*domain.Order, error) {
	c.mu.Lock()
	if len(c.items) == 0 {
		c.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if c.checkingOut {
		c.mu.Unlock()
		return nil, ErrCheckoutPending
	}
	c.checkingOut = true
	order := &domain.Order{
		TenantDomain: tenant,
		CustomerName: customer.Name,
		Phone:        customer.Phone,
		Notes:        customer.Notes,
		Total:        sumSubtotals(c.items),
		Status:       domain.OrderPending,
	}
	for _, it := range c.items {
		order.Items = append(order.Items, domain.OrderItem{
			DishID:   it.Dish.ID,
			DishName: it.Dish.Name,
			Quantity: it.Quantity,
			Price:    it.Dish.Price,
		})
	}
	c.mu.Unlock()

	placed, err := api.PlaceOrder(ctx, order)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkingOut = false
	if err != nil {
		c.notices.Push(domain.NoticeDestructive, "Order failed", err.Error())
		return nil, err
	}

	c.subtractLocked(order.Items)
	if len(c.items) == 0 {
		c.open = false
	}
	metrics.ObserveCartMutation("checkout")
	c.notices.Push(domain.NoticeSuccess, "Order placed", fmt.Sprintf("Order %s was received.", placed.ID))
	if err := c.persistLocked(ctx); err != nil {
		return placed, err
	}
	return placed, nil
}

// subtractLocked removes ordered quantities, dropping lines that reach zero
func (c *Cart) subtractLocked(ordered []domain.OrderItem) {
	taken := make(map[string]int, len(ordered))
	for _, it := range ordered {
		taken[it.DishID] += it.Quantity
	}
	kept := c.items[:0:0]
	for _, it := range c.items {
		left := it.Quantity - taken[it.Dish.ID]
		if left < 1 {
			continue
		}
		it.Quantity = left
		it.Subtotal = it.Dish.LineTotal(left)
		kept = append(kept, it)
	}
	c.items = kept
}

func (c *Cart) persistLocked(ctx context.Context) error {
	items := c.items
	if items == nil {
		items = []domain.CartItem{}
	}
	raw, err := json.Marshal(cartPayload{Items: items})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.kv.Set(ctx, CartStorageKey, string(raw)); err != nil {
		c.logger.Error("failed to persist cart", slog.String("error", err.Error()))
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// ItemCount is the sum of quantities
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of subtotals
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sumSubtotals(c.items)
}

func sumSubtotals(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

func (c *Cart) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

func (c *Cart) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

func (c *Cart) Toggle() {
	c.mu.Lock()
	c.open = !c.open
	c.mu.Unlock()
}

func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
