package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
	"github.com/saborytradicion/storefront/internal/security"
)

const qrCodeSize = 256

// OrderService places and lists tenant orders
type OrderService struct {
	orders domain.OrderRepository
	menu   domain.MenuRepository
	authz  *security.AuthorizationService
	feed   *OrderFeed
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	orders domain.OrderRepository,
	menu domain.MenuRepository,
	authz *security.AuthorizationService,
	feed *OrderFeed,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		orders: orders,
		menu:   menu,
		authz:  authz,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

// PlaceOrder validates a checkout against the tenant's menu and stores it.
// Names and prices come from the menu; whatever the client sent for them
// is ignored.
func (s *OrderService) PlaceOrder(tenantDomain string, req domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	total := decimal.Zero
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %s must be at least 1", ErrInvalidInput, line.DishID)
		}
		dish, err := s.menu.GetDish(tenantDomain, line.DishID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown dish %s", ErrInvalidInput, line.DishID)
			}
			return nil, err
		}
		if !dish.IsActive {
			return nil, fmt.Errorf("%w: %s is not available", ErrInvalidInput, dish.Name)
		}
		items = append(items, domain.OrderItem{
			DishID:   dish.ID,
			DishName: dish.Name,
			Quantity: line.Quantity,
			Price:    dish.Price,
		})
		total = total.Add(dish.LineTotal(line.Quantity))
	}

	order := &domain.Order{
		ID:           uuid.NewString(),
		TenantDomain: tenantDomain,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Phone:        strings.TrimSpace(req.Phone),
		Notes:        strings.TrimSpace(req.Notes),
		Items:        items,
		Total:        total,
		Status:       domain.OrderPending,
		CreatedAt:    s.now().UTC(),
	}
	order.QRCode = qrPayload(order)

	if err := s.orders.Create(order); err != nil {
		s.logger.Error("failed to store order", slog.String("tenant", tenantDomain), slog.String("error", err.Error()))
		return nil, errors.New("failed to place order")
	}

	s.logger.Info("order placed",
		slog.String("tenant", tenantDomain),
		slog.String("order_id", order.ID),
		slog.Int("items", len(items)),
		slog.String("total", total.StringFixed(2)),
	)
	metrics.ObserveOrderPlaced(tenantDomain)
	if s.feed != nil {
		s.feed.Publish(*order)
	}
	return order, nil
}

// ListOrders returns the tenant's orders, newest first
func (s *OrderService) ListOrders(actor domain.User, tenantDomain string) ([]*domain.Order, error) {
	if err := s.authz.Authorize(actor, security.PermViewOrders, tenantDomain); err != nil {
		return nil, err
	}
	return s.orders.ListByTenant(tenantDomain)
}

// QRCode renders the order's pickup code as a PNG
func (s *OrderService) QRCode(actor domain.User, tenantDomain, orderID string) ([]byte, error) {
	if err := s.authz.Authorize(actor, security.PermViewOrders, tenantDomain); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(tenantDomain, orderID)
	if err != nil {
		return nil, err
	}
	payload := order.QRCode
	if payload == "" {
		payload = qrPayload(order)
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// Subscribe opens a live feed of tenantDomain's new orders for actor
func (s *OrderService) Subscribe(actor domain.User, tenantDomain string) (<-chan domain.Order, func(), error) {
	if err := s.authz.Authorize(actor, security.PermWatchOrders, tenantDomain); err != nil {
		return nil, nil, err
	}
	if s.feed == nil {
		return nil, nil, errors.New("order feed disabled")
	}
	ch, cancel := s.feed.Subscribe(tenantDomain)
	return ch, cancel, nil
}

func qrPayload(order *domain.Order) string {
	return fmt.Sprintf("https://%s/orders/%s", order.TenantDomain, order.ID)
}
