package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/featureflags"
	"github.com/saborytradicion/storefront/internal/storefront"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" {
		printUsage()
		if len(os.Args) < 2 {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		err = handleAuth(ctx, a, args)
	case "menu":
		err = listMenu(ctx, a)
	case "cart":
		err = handleCart(ctx, a, args)
	case "orders":
		err = handleOrders(ctx, a, args)
	case "tenant":
		err = handleTenant(ctx, a, args)
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront auth <login|logout|who|sessions|clear|migrate>")
	}

	switch args[0] {
	case "login":
		return login(ctx, a, args[1:])
	case "logout":
		return logout(ctx, a, args[1:])
	case "who":
		return whoAmI(ctx, a, args[1:])
	case "sessions":
		return listSessions(ctx, a)
	case "clear":
		return clearSessions(ctx, a)
	case "migrate":
		return migrate(ctx, a)
	default:
		return fmt.Errorf("unknown auth command: %s", args[0])
	}
}

// Auth commands
func login(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	surface := fs.String("context", "admin", "login surface: admin, orders or superadmin")
	email := fs.String("email", "", "user email")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "password (default $STOREFRONT_PASSWORD)")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return errors.New("email and password are required")
	}

	scope, err := a.scope(*surface)
	if err != nil {
		return err
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	sessions.CheckAuth(ctx, scope)
	defer sessions.Wait()

	user, err := sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	route, err := storefront.RouteAfterLogin(scope.Context, user.Role)
	if err != nil {
		return fmt.Errorf("%s accounts cannot use the %s login: %w", user.Role, scope.Context, err)
	}
	fmt.Printf("✓ Logged in as %s (%s), continue at %s\n", user.Email, user.Role, route)
	return nil
}

func logout(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	surface := fs.String("context", "admin", "login surface: admin, orders or superadmin")
	fs.Parse(args)

	scope, err := a.scope(*surface)
	if err != nil {
		return err
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	sessions.CheckAuth(ctx, scope)
	defer sessions.Wait()

	route, err := sessions.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Logged out of %s, sign in again at %s\n", scope.SessionKey(), route)
	return nil
}

func whoAmI(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("who", flag.ExitOnError)
	surface := fs.String("context", "admin", "login surface: admin, orders or superadmin")
	fs.Parse(args)

	scope, err := a.scope(*surface)
	if err != nil {
		return err
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	user := sessions.CheckAuth(ctx, scope)
	if user == nil {
		fmt.Printf("Not logged in (%s)\n", scope.SessionKey())
		return nil
	}
	sessions.Wait()
	if refreshed := sessions.User(); refreshed != nil {
		user = refreshed
	}
	fmt.Printf("✓ %s <%s> %s on %s\n", user.Name, user.Email, user.Role, scope.SessionKey())
	return nil
}

func listSessions(ctx context.Context, a *app) error {
	if !featureflags.Enabled(featureflags.SessionDebug) {
		return errors.New("session listing is disabled; set FLAG_SESSION_DEBUG=true")
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	active, err := sessions.ActiveSessions(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tCONTEXT\tTENANT\tUSER\tROLE")
	for _, s := range active {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.SessionKey, s.Scope.Context, s.Scope.TenantDomain, s.User.Email, s.User.Role)
	}
	return w.Flush()
}

func clearSessions(ctx context.Context, a *app) error {
	if !featureflags.Enabled(featureflags.SessionDebug) {
		return errors.New("session wipe is disabled; set FLAG_SESSION_DEBUG=true")
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}
	removed, err := sessions.ClearAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Removed %d session keys\n", removed)
	return nil
}

func migrate(ctx context.Context, a *app) error {
	report, err := storefront.MigrateLegacySessions(ctx, a.kv, a.cfg.TenantDomain, a.log)
	if err != nil {
		return err
	}
	if report.AlreadyMigrated {
		fmt.Println("✓ Sessions already migrated")
		return nil
	}
	fmt.Printf("✓ Migrated %d legacy sessions", len(report.Migrated))
	if len(report.Malformed) > 0 {
		fmt.Printf(", skipped %d malformed", len(report.Malformed))
	}
	fmt.Println()
	return nil
}

// Menu and cart commands
func listMenu(ctx context.Context, a *app) error {
	dishes, err := a.client.ListDishes(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tAVAILABLE")
	for _, d := range dishes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.ID, d.Name, d.Price.StringFixed(2), d.IsActive)
	}
	return w.Flush()
}

func handleCart(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront cart <show|add|remove|update|clear|checkout>")
	}
	cart, err := a.cart(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
		return showCart(cart)
	case "add":
		if len(args) < 2 {
			return errors.New("usage: storefront cart add <dish-id> [quantity]")
		}
		quantity := 1
		if len(args) > 2 {
			if quantity, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
		}
		dish, err := a.client.GetDish(ctx, args[1])
		if err != nil {
			return err
		}
		if err := cart.AddItem(ctx, *dish, quantity); err != nil {
			return err
		}
		return showCart(cart)
	case "remove":
		if len(args) < 2 {
			return errors.New("usage: storefront cart remove <dish-id>")
		}
		if err := cart.RemoveItem(ctx, args[1]); err != nil {
			return err
		}
		return showCart(cart)
	case "update":
		if len(args) < 3 {
			return errors.New("usage: storefront cart update <dish-id> <quantity>")
		}
		quantity, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[2])
		}
		if err := cart.UpdateQuantity(ctx, args[1], quantity); err != nil {
			return err
		}
		return showCart(cart)
	case "clear":
		return cart.Clear(ctx)
	case "checkout":
		return checkout(ctx, a, cart, args[1:])
	default:
		return fmt.Errorf("unknown cart command: %s", args[0])
	}
}

func showCart(cart *storefront.Cart) error {
	items := cart.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DISH\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", it.Dish.Name, it.Quantity, it.Dish.Price.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "TOTAL\t%d\t\t%s\n", cart.ItemCount(), cart.Total().StringFixed(2))
	return w.Flush()
}

func checkout(ctx context.Context, a *app, cart *storefront.Cart, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "contact phone")
	notes := fs.String("notes", "", "notes for the kitchen")
	fs.Parse(args)

	if *name == "" {
		fs.PrintDefaults()
		return errors.New("name is required")
	}
	order, err := cart.Checkout(ctx, a.client, a.cfg.TenantDomain, storefront.Customer{Name: *name, Phone: *phone, Notes: *notes})
	if err != nil {
		return err
	}
	fmt.Printf("Order %s total %s\n", order.ID, order.Total.StringFixed(2))
	return nil
}

// Order commands
func handleOrders(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront orders <list|watch|qrcode>")
	}
	token, err := staffToken(ctx, a)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		orders, err := a.client.ListOrders(ctx, token)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tTOTAL\tCREATED")
		for _, o := range orders {
			printOrder(w, o)
		}
		return w.Flush()
	case "watch":
		fmt.Fprintln(os.Stderr, "Waiting for orders, Ctrl-C to stop")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		return a.client.WatchOrders(ctx, token, func(o domain.Order) {
			printOrder(w, o)
			w.Flush()
		})
	case "qrcode":
		fs := flag.NewFlagSet("qrcode", flag.ExitOnError)
		out := fs.String("out", "", "output file (default <order-id>.png)")
		fs.Parse(args[1:])
		if fs.NArg() < 1 {
			return errors.New("usage: storefront orders qrcode [-out file] <order-id>")
		}
		id := fs.Arg(0)
		png, err := a.client.OrderQRCode(ctx, token, id)
		if err != nil {
			return err
		}
		path := *out
		if path == "" {
			path = id + ".png"
		}
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return err
		}
		fmt.Printf("✓ QR code written to %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown orders command: %s", args[0])
	}
}

func printOrder(w *tabwriter.Writer, o domain.Order) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.CustomerName, o.Status, o.Total.StringFixed(2), o.CreatedAt.Local().Format("2006-01-02 15:04"))
}

// staffToken prefers the orders session of the tenant, then its admin session
func staffToken(ctx context.Context, a *app) (string, error) {
	sessions, err := a.sessions(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range []domain.AuthContext{domain.ContextOrders, domain.ContextAdmin} {
		scope, _ := a.scope(string(c))
		if sessions.CheckAuth(ctx, scope) == nil {
			continue
		}
		if token, ok := sessions.Token(); ok {
			sessions.Wait()
			return token, nil
		}
	}
	return "", fmt.Errorf("no orders or admin session for %s: %w", a.cfg.TenantDomain, storefront.ErrNoSession)
}

// Tenant commands
func handleTenant(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: storefront tenant <settings|list>")
	}
	sessions, err := a.sessions(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "settings":
		fs := flag.NewFlagSet("settings", flag.ExitOnError)
		tenant := fs.String("tenant", a.cfg.TenantDomain, "tenant domain")
		display := fs.String("display-name", "", "name shown to customers")
		color := fs.String("color", "", "primary color, #rrggbb")
		logo := fs.String("logo", "", "logo URL")
		phone := fs.String("phone", "", "contact phone")
		address := fs.String("address", "", "street address")
		fs.Parse(args[1:])

		token, err := sessions.TenantToken(ctx, *tenant)
		if err != nil {
			return fmt.Errorf("sign in as admin of %s or as superadmin: %w", *tenant, err)
		}
		updated, err := a.client.UpdateTenantSettings(ctx, token, *tenant, domain.TenantSettings{
			DisplayName:  *display,
			PrimaryColor: *color,
			LogoURL:      *logo,
			Phone:        *phone,
			Address:      *address,
		})
		if err != nil {
			return err
		}
		fmt.Printf("✓ Settings saved for %s\n", updated.Domain)
		return nil
	case "list":
		if sessions.CheckAuth(ctx, domain.Scope{Context: domain.ContextSuperadmin}) == nil {
			return fmt.Errorf("sign in as superadmin first: %w", storefront.ErrNoSession)
		}
		defer sessions.Wait()
		token, _ := sessions.Token()
		tenants, err := a.client.ListTenants(ctx, token)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tNAME\tACTIVE")
		for _, t := range tenants {
			fmt.Fprintf(w, "%s\t%s\t%t\n", t.Domain, t.Name, t.IsActive)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown tenant command: %s", args[0])
	}
}

func printUsage() {
	fmt.Print(`Sabor y Tradición storefront CLI

Usage:
  storefront <command> [options]

Commands:
  auth       Sessions (login, logout, who, sessions, clear, migrate)
  menu       List the tenant's dishes
  cart       Cart operations (show, add, remove, update, clear, checkout)
  orders     Staff order views (list, watch, qrcode)
  tenant     Tenant administration (settings, list)
  help       Show this help message

Environment Variables:
  API_BASE_URL         API endpoint (default: http://localhost:8080)
  TENANT_DOMAIN        Tenant the CLI acts for (default: localhost)
  STORAGE_BACKEND      file, memory, redis or postgres (default: file)
  STATE_PATH           File backend location (default: ~/.storefront/state.json)
  FLAG_SESSION_DEBUG   Enables "auth sessions" and "auth clear"

Examples:
  storefront auth login -context admin -email admin@localhost -password admin12345
  storefront cart add mole-poblano 2
  storefront cart checkout -name "Lupita"
  storefront orders watch
`)
}
