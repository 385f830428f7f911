package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cartstore"
	"github.com/angelmondragon/storefront-client/internal/engine"
	"github.com/angelmondragon/storefront-client/internal/notify"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/internal/session"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

const usage = `usage: cartctl <command> [flags]

commands:
  add       add an item to the cart (reserves stock when the backend is up)
  remove    remove an item from the cart
  update    change the quantity of a cart line
  show      print the cart contents, totals, and operating mode
  clear     empty the cart and release all holds
  checkout  validate the cart and submit an order
  watch     keep the engine running so background revalidation is visible
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartctl"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mirror, err := cartstore.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open cart mirror", err)
		os.Exit(1)
	}
	defer func() {
		if err := mirror.Close(); err != nil {
			logg.Error(ctx, "error closing cart mirror", err)
		}
	}()

	sessions, err := session.NewProvider(mirror)
	if err != nil {
		logg.Error(ctx, "failed to create session provider", err)
		os.Exit(1)
	}

	apiClient, err := api.NewClient(cfg.API, nil, logg, metrics.NewReservationMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		os.Exit(1)
	}

	notifier := notify.NewSurface(notify.Options{
		NoticeTTL: cfg.Engine.NoticeTTL,
		OnNotice: func(n notify.Notice) {
			fmt.Printf("[%s] %s\n", n.Kind, n.Message)
		},
	})

	eng, err := engine.New(engine.Params{
		Logger:   logg,
		API:      apiClient,
		Mirror:   mirror,
		Sessions: sessions,
		Notifier: notifier,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Engine,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart engine", err)
		os.Exit(1)
	}
	if err := eng.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start cart engine", err)
		os.Exit(1)
	}
	defer eng.Close()

	fee, err := cfg.Shipping.DefaultFee()
	if err != nil {
		logg.Error(ctx, "invalid default shipping fee", err)
		os.Exit(1)
	}
	orderSvc, err := orders.NewService(orders.Params{
		Logger:             logg,
		API:                apiClient,
		Engine:             eng,
		Sessions:           sessions,
		DefaultShippingFee: fee,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	if err := run(ctx, eng, orderSvc, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, eng *engine.Engine, orderSvc orders.Service, command string, args []string) error {
	switch command {
	case "add":
		return runAdd(ctx, eng, args)
	case "remove":
		return runRemove(ctx, eng, args)
	case "update":
		return runUpdate(ctx, eng, args)
	case "show":
		return runShow(eng)
	case "clear":
		return eng.Clear(ctx)
	case "checkout":
		return runCheckout(ctx, orderSvc, args)
	case "watch":
		fmt.Println("watching cart, press ctrl-c to stop")
		<-ctx.Done()
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runAdd(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	productID := fs.Int64("product", 0, "product id (omit for catalog-less items)")
	name := fs.String("name", "", "product name")
	price := fs.String("price", "0", "unit price")
	size := fs.String("size", "", "size label")
	sizeID := fs.Int64("size-id", 0, "size id")
	quantity := fs.Int("qty", 1, "quantity")
	image := fs.String("image", "", "image url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	unitPrice, err := decimal.NewFromString(*price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", *price, err)
	}

	input := engine.AddItemInput{
		ProductID: optionalID(*productID),
		Name:      *name,
		UnitPrice: unitPrice,
		Image:     *image,
		Size:      *size,
		SizeID:    optionalID(*sizeID),
		Quantity:  *quantity,
	}
	if err := eng.AddItem(ctx, input); err != nil {
		return err
	}
	fmt.Printf("added, cart now holds %d items (%s mode)\n", eng.TotalItems(), eng.Mode())
	return nil
}

func runRemove(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	productID := fs.Int64("product", 0, "product id")
	name := fs.String("name", "", "product name")
	size := fs.String("size", "", "size label")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := types.LineKey{ProductID: optionalID(*productID), Name: *name, Size: *size}
	if err := eng.RemoveItem(ctx, key); err != nil {
		return err
	}
	fmt.Printf("removed, cart now holds %d items\n", eng.TotalItems())
	return nil
}

func runUpdate(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	productID := fs.Int64("product", 0, "product id")
	name := fs.String("name", "", "product name")
	size := fs.String("size", "", "size label")
	quantity := fs.Int("qty", 1, "new quantity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := types.LineKey{ProductID: optionalID(*productID), Name: *name, Size: *size}
	if err := eng.UpdateQuantity(ctx, key, *quantity); err != nil {
		return err
	}
	fmt.Printf("updated, cart now holds %d items\n", eng.TotalItems())
	return nil
}

func runShow(eng *engine.Engine) error {
	lines := eng.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	for _, line := range lines {
		held := "no hold"
		if line.Reserved() {
			held = fmt.Sprintf("held until %s", line.ReservedUntil.Format("15:04:05"))
		}
		fmt.Printf("  %-30s size=%-6s qty=%-3d unit=%-8s %s\n",
			line.Name, line.Size, line.Quantity, line.UnitPrice.StringFixed(2), held)
	}
	fmt.Printf("total: %s (%d items, %s mode)\n", eng.TotalPrice().StringFixed(2), eng.TotalItems(), eng.Mode())
	for _, warning := range eng.StockWarnings() {
		fmt.Printf("warning: %s (%s) may no longer be in stock\n", warning.Name, warning.Size)
	}
	return nil
}

func runCheckout(ctx context.Context, orderSvc orders.Service, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email address")
	address := fs.String("address", "", "delivery address")
	governorate := fs.String("governorate", "", "delivery governorate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := orderSvc.Submit(ctx, orders.OrderInput{
		CustomerName: *name,
		Phone:        *phone,
		Email:        *email,
		Address:      *address,
		Governorate:  *governorate,
	})
	if err != nil {
		return err
	}
	fmt.Printf("order %s created: items %s + shipping %s\n",
		result.OrderNumber, result.ItemsTotal.StringFixed(2), result.ShippingCost.StringFixed(2))
	return nil
}

func optionalID(value int64) *int64 {
	if value == 0 {
		return nil
	}
	return &value
}
