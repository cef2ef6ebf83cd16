package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	buyerrepo "farmstand/internal/repository/buyer"
	cartrepo "farmstand/internal/repository/cart"
	productrepo "farmstand/internal/repository/product"
	tokenrepo "farmstand/internal/repository/token"
	sessionsvc "farmstand/internal/service/session"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	Vendor     string
	SKU        string
	Name       string
	Unit       string
	PriceMinor int64
	Quantity   int
}

// Result is what a local run needs to call the API as the demo buyer.
type Result struct {
	BuyerID   string
	Email     string
	Token     string
	ExpiresAt time.Time
	Products  int
}

const demoEmail = "ada@example.com"

var demoProducts = []productSeed{
	{Vendor: "Green Acres Farm", SKU: "GA-TOM-1KG", Name: "Vine Tomatoes", Unit: "kg", PriceMinor: 500, Quantity: 2},
	{Vendor: "Green Acres Farm", SKU: "GA-KALE", Name: "Curly Kale", Unit: "bunch", PriceMinor: 250},
	{Vendor: "Sunrise Dairy", SKU: "SD-MILK-1L", Name: "Whole Milk", Unit: "litre", PriceMinor: 1000, Quantity: 1},
	{Vendor: "Sunrise Dairy", SKU: "SD-YOG-500", Name: "Greek Yogurt", Unit: "tub", PriceMinor: 700},
}

// Apply seeds two vendors, their products, a demo buyer with a wallet and a two-vendor cart,
// then issues a session token for that buyer. Catalog and buyer are idempotent; the cart is reset.
func Apply(ctx context.Context, pool *pgxpool.Pool, currency string, sessionTTL time.Duration, logger *log.Logger) (*Result, error) {
	products := productrepo.NewPostgres(pool, logger)
	buyers := buyerrepo.NewPostgres(pool, logger)
	carts := cartrepo.NewPostgres(pool, logger)
	sessions := sessionsvc.New(tokenrepo.NewPostgres(pool), buyers, sessionTTL)

	buyer, err := buyers.Upsert(ctx, demoEmail, "Ada")
	if err != nil {
		return nil, fmt.Errorf("upsert buyer: %w", err)
	}
	if err := buyers.EnsureWallet(ctx, buyer.ID); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}
	if err := carts.ClearByBuyer(ctx, buyer.ID); err != nil {
		return nil, fmt.Errorf("reset cart: %w", err)
	}

	vendors := map[string]string{}
	for _, p := range demoProducts {
		vendorID, ok := vendors[p.Vendor]
		if !ok {
			v, err := products.UpsertVendor(ctx, p.Vendor)
			if err != nil {
				return nil, fmt.Errorf("upsert vendor %s: %w", p.Vendor, err)
			}
			vendorID = v.ID
			vendors[p.Vendor] = vendorID
		}
		entry, err := products.Upsert(ctx, productrepo.UpsertInput{
			VendorID:   vendorID,
			SKU:        p.SKU,
			Name:       p.Name,
			Unit:       p.Unit,
			PriceMinor: p.PriceMinor,
			Currency:   currency,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
		if p.Quantity > 0 {
			if _, err := carts.AddLine(ctx, buyer.ID, entry.ProductID, p.Quantity); err != nil {
				return nil, fmt.Errorf("add cart line %s: %w", p.SKU, err)
			}
		}
	}

	token, expires, err := sessions.Issue(ctx, buyer.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &Result{BuyerID: buyer.ID, Email: buyer.Email, Token: token, ExpiresAt: expires, Products: len(demoProducts)}, nil
}
