package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/saborytradicion/storefront/internal/domain"
)

// WatchOrders streams new orders of the tenant to fn until ctx is done or
// the server closes the feed. A clean stop returns nil.
func (c *Client) WatchOrders(ctx context.Context, token string, fn func(domain.Order)) error {
	u, err := url.Parse(c.baseURL + "/ws/orders")
	if err != nil {
		return fmt.Errorf("parse feed url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.tenant != "" {
		header.Set(TenantHeader, c.tenant)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: "order feed refused"}
		}
		return fmt.Errorf("dial order feed: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var order domain.Order
		if err := conn.ReadJSON(&order); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read order feed: %w", err)
		}
		fn(order)
	}
}
