package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/storage"
)

func dish(id, price string) domain.Dish {
	return domain.Dish{ID: id, Name: "Dish " + id, Price: decimal.RequireFromString(price), IsActive: true}
}

func newTestCart(t *testing.T) (*Cart, *storage.Memory, *Notices) {
	t.Helper()
	kv := storage.NewMemory()
	notices := NewNotices()
	cart, err := OpenCart(context.Background(), kv, notices, nil)
	if err != nil {
		t.Fatalf("open cart: %v", err)
	}
	return cart, kv, notices
}

func assertAggregates(t *testing.T, c *Cart) {
	t.Helper()
	want := decimal.Zero
	count := 0
	for _, it := range c.Items() {
		want = want.Add(it.Dish.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		count += it.Quantity
	}
	if !c.Total().Equal(want) {
		t.Fatalf("total %s does not match items sum %s", c.Total(), want)
	}
	if c.ItemCount() != count {
		t.Fatalf("item count %d does not match quantities %d", c.ItemCount(), count)
	}
}

func TestCartAggregatesFollowMutations(t *testing.T) {
	cart, _, _ := newTestCart(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { return cart.AddItem(ctx, dish("1", "12.50"), 2) },
		func() error { return cart.AddItem(ctx, dish("2", "3.10"), 1) },
		func() error { return cart.UpdateQuantity(ctx, "2", 4) },
		func() error { return cart.AddItem(ctx, dish("3", "0.10"), 3) },
		func() error { return cart.RemoveItem(ctx, "1") },
		func() error { return cart.AddItem(ctx, dish("1", "13.00"), 1) },
		func() error { return cart.UpdateQuantity(ctx, "3", 0) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertAggregates(t, cart)
	}

	if got := cart.Total(); !got.Equal(decimal.RequireFromString("25.40")) {
		t.Fatalf("expected 25.40, got %s", got)
	}
}

func TestAddSameDishMerges(t *testing.T) {
	cart, _, notices := newTestCart(t)
	ctx := context.Background()

	if err := cart.AddItem(ctx, dish("7", "5.00"), 2); err != nil {
		t.Fatal(err)
	}
	if err := cart.AddItem(ctx, dish("7", "6.00"), 3); err != nil {
		t.Fatal(err)
	}

	items := cart.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", items[0].Quantity)
	}
	if !items[0].Subtotal.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("expected subtotal at the live price, got %s", items[0].Subtotal)
	}

	got := notices.Drain()
	if len(got) != 2 || got[0].Title != "Added to cart" || got[1].Title != "Quantity updated" {
		t.Fatalf("unexpected notices %+v", got)
	}
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	for _, q := range []int{0, -5} {
		cart, _, _ := newTestCart(t)
		ctx := context.Background()
		_ = cart.AddItem(ctx, dish("1", "2"), 1)
		_ = cart.AddItem(ctx, dish("2", "3"), 1)

		if err := cart.UpdateQuantity(ctx, "1", q); err != nil {
			t.Fatalf("update %d: %v", q, err)
		}

		ref, _, _ := newTestCart(t)
		_ = ref.AddItem(ctx, dish("1", "2"), 1)
		_ = ref.AddItem(ctx, dish("2", "3"), 1)
		_ = ref.RemoveItem(ctx, "1")

		if len(cart.Items()) != 1 || cart.Items()[0].Dish.ID != "2" {
			t.Fatalf("quantity %d: expected only dish 2 left, got %+v", q, cart.Items())
		}
		if !cart.Total().Equal(ref.Total()) || cart.ItemCount() != ref.ItemCount() {
			t.Fatalf("quantity %d: expected same result as RemoveItem", q)
		}
	}
}

func TestInactiveDishIsRejected(t *testing.T) {
	cart, kv, notices := newTestCart(t)
	ctx := context.Background()
	_ = cart.AddItem(ctx, dish("1", "4.25"), 2)
	notices.Drain()
	before, _, _ := kv.Get(ctx, CartStorageKey)

	off := dish("9", "99")
	off.IsActive = false
	if err := cart.AddItem(ctx, off, 1); err != nil {
		t.Fatalf("rejection should not be an error: %v", err)
	}

	if len(cart.Items()) != 1 || cart.ItemCount() != 2 || !cart.Total().Equal(decimal.RequireFromString("8.5")) {
		t.Fatalf("cart changed after rejected add: %+v", cart.Items())
	}
	after, _, _ := kv.Get(ctx, CartStorageKey)
	if before != after {
		t.Fatalf("stored cart changed after rejected add")
	}
	got := notices.Drain()
	if len(got) != 1 || got[0].Kind != domain.NoticeDestructive {
		t.Fatalf("expected one destructive notice, got %+v", got)
	}
}

func TestAddRejectsBadQuantity(t *testing.T) {
	cart, _, _ := newTestCart(t)
	if err := cart.AddItem(context.Background(), dish("1", "1"), 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if len(cart.Items()) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestRemoveAbsentIsIdempotent(t *testing.T) {
	cart, _, notices := newTestCart(t)
	ctx := context.Background()
	if err := cart.RemoveItem(ctx, "nope"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if err := cart.RemoveItem(ctx, "nope"); err != nil {
		t.Fatalf("remove absent twice: %v", err)
	}
	if n := notices.Len(); n != 2 {
		t.Fatalf("expected a removal notice per call, got %d", n)
	}
}

func TestCartPersistenceRoundTrip(t *testing.T) {
	cart, kv, _ := newTestCart(t)
	ctx := context.Background()
	_ = cart.AddItem(ctx, dish("a", "10.10"), 3)
	_ = cart.AddItem(ctx, dish("b", "0.20"), 1)
	_ = cart.AddItem(ctx, dish("c", "7.77"), 2)

	reloaded, err := OpenCart(ctx, kv, nil, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ItemCount() != cart.ItemCount() {
		t.Fatalf("item count %d != %d", reloaded.ItemCount(), cart.ItemCount())
	}
	if !reloaded.Total().Equal(cart.Total()) {
		t.Fatalf("total %s != %s", reloaded.Total(), cart.Total())
	}
	if reloaded.IsOpen() {
		t.Fatalf("panel state must not be persisted")
	}
}

func TestOpenCartRecomputesAndMerges(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()
	_ = kv.Set(ctx, CartStorageKey, `{"items":[
		{"dish":{"id":"1","name":"Tamal","price":"2.5","isActive":true},"quantity":2,"subtotal":"999"},
		{"dish":{"id":"1","name":"Tamal","price":"2.5","isActive":true},"quantity":1,"subtotal":"0"},
		{"dish":{"id":"2","name":"Atole","price":"1","isActive":true},"quantity":0,"subtotal":"0"}
	]}`)

	cart, err := OpenCart(ctx, kv, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	items := cart.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected merged single line, got %+v", items)
	}
	if !cart.Total().Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("expected total recomputed to 7.5, got %s", cart.Total())
	}
}

func TestOpenCartIgnoresCorruptPayload(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()
	_ = kv.Set(ctx, CartStorageKey, "{broken")

	cart, err := OpenCart(ctx, kv, nil, nil)
	if err != nil {
		t.Fatalf("corrupt cart should not fail: %v", err)
	}
	if len(cart.Items()) != 0 || !cart.Total().IsZero() {
		t.Fatalf("expected empty cart")
	}
}

func TestClearClosesPanel(t *testing.T) {
	cart, kv, _ := newTestCart(t)
	ctx := context.Background()
	_ = cart.AddItem(ctx, dish("1", "1"), 1)
	cart.Open()
	if cart.IsOpen() != true {
		t.Fatalf("expected open")
	}
	if err := cart.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if cart.IsOpen() || cart.ItemCount() != 0 || !cart.Total().IsZero() {
		t.Fatalf("expected empty closed cart")
	}
	raw, _, _ := kv.Get(ctx, CartStorageKey)
	if raw != `{"items":[]}` {
		t.Fatalf("expected empty items persisted, got %s", raw)
	}
	cart.Toggle()
	if !cart.IsOpen() {
		t.Fatalf("expected toggle to open")
	}
}

type fakeOrderPlacer struct {
	got *domain.Order
	err error
}

func (f *fakeOrderPlacer) PlaceOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	f.got = order
	if f.err != nil {
		return nil, f.err
	}
	placed := *order
	placed.ID = "order-1"
	return &placed, nil
}

func TestCheckout(t *testing.T) {
	cart, _, _ := newTestCart(t)
	ctx := context.Background()
	api := &fakeOrderPlacer{}

	if _, err := cart.Checkout(ctx, api, "demo.local", Customer{Name: "Ana"}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	_ = cart.AddItem(ctx, dish("1", "4.5"), 2)
	api.err = errors.New("api down")
	if _, err := cart.Checkout(ctx, api, "demo.local", Customer{Name: "Ana"}); err == nil {
		t.Fatalf("expected failure")
	}
	if cart.ItemCount() != 2 {
		t.Fatalf("cart must survive a failed checkout")
	}

	api.err = nil
	order, err := cart.Checkout(ctx, api, "demo.local", Customer{Name: "Ana", Phone: "555"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.ID != "order-1" || !api.got.Total.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("unexpected order %+v", api.got)
	}
	if len(api.got.Items) != 1 || api.got.Items[0].Quantity != 2 || api.got.TenantDomain != "demo.local" {
		t.Fatalf("unexpected order items %+v", api.got.Items)
	}
	if cart.ItemCount() != 0 {
		t.Fatalf("expected cart emptied after checkout")
	}
}

// blockingPlacer holds PlaceOrder until release is closed
type blockingPlacer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPlacer) PlaceOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	close(b.entered)
	<-b.release
	placed := *order
	placed.ID = "order-slow"
	return &placed, nil
}

func TestCheckoutDoesNotBlockCartDuringAPICall(t *testing.T) {
	cart, _, _ := newTestCart(t)
	ctx := context.Background()
	_ = cart.AddItem(ctx, dish("1", "10"), 2)

	api := &blockingPlacer{entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := cart.Checkout(ctx, api, "demo.local", Customer{Name: "Ana"})
		done <- err
	}()
	<-api.entered

	read := make(chan int, 1)
	go func() { read <- cart.ItemCount() }()
	select {
	case n := <-read:
		if n != 2 {
			t.Fatalf("expected 2 items while the order is in flight, got %d", n)
		}
	case <-time.After(time.Second):
		close(api.release)
		t.Fatalf("ItemCount blocked while the order was in flight")
	}

	if _, err := cart.Checkout(ctx, &fakeOrderPlacer{}, "demo.local", Customer{Name: "Ana"}); !errors.Is(err, ErrCheckoutPending) {
		t.Fatalf("expected ErrCheckoutPending, got %v", err)
	}
	if err := cart.AddItem(ctx, dish("1", "10"), 1); err != nil {
		t.Fatalf("add during checkout: %v", err)
	}
	if err := cart.AddItem(ctx, dish("2", "3"), 1); err != nil {
		t.Fatalf("add during checkout: %v", err)
	}

	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("checkout: %v", err)
	}
	items := cart.Items()
	if len(items) != 2 || items[0].Quantity != 1 || items[1].Dish.ID != "2" {
		t.Fatalf("expected only the lines added during checkout to remain, got %+v", items)
	}
	assertAggregates(t, cart)
}
