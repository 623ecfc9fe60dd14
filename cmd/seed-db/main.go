// Command seed-db provisions a database with a demo catalog, the standing
// promotional coupons, and API keys for local development.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/fashion-store/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "customer API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, pool, "default", "Default customer key", "demo-user", []string{}, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed customer API key")
	}
	if adminKey != "" {
		if err := seedAPIKey(ctx, pool, "admin", "Admin key", "admin-user", []string{"admin"}, adminKey, pepper); err != nil {
			return errors.Wrap(err, "seed admin API key")
		}
	}

	return nil
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, description, price, brand, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, brand = EXCLUDED.brand, category = EXCLUDED.category,
			updated_at = now()`

	upsertVariantSQL = `INSERT INTO product_variants (id, product_id, sku, size, color, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, size, color) DO UPDATE SET stock = EXCLUDED.stock`

	upsertCouponSQL = `INSERT INTO coupons (code, description, discount_type, value,
			min_order_amount, max_discount, min_quantity, max_uses, active, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
		ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
			min_order_amount = EXCLUDED.min_order_amount, max_discount = EXCLUDED.max_discount,
			min_quantity = EXCLUDED.min_quantity, max_uses = EXCLUDED.max_uses,
			active = TRUE, valid_until = EXCLUDED.valid_until`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_ref, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			user_ref = EXCLUDED.user_ref, scopes = EXCLUDED.scopes, active = TRUE`
)

type seedProduct struct {
	id       string
	name     string
	desc     string
	price    decimal.Decimal
	brand    string
	category string
	sizes    []string
	colors   []string
	stock    int
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	products := []seedProduct{
		{
			id: "classic-tee", name: "Classic Cotton Tee",
			desc:  "Heavyweight combed cotton crew neck",
			price: decimal.NewFromFloat(24.99), brand: "Meridian", category: "tops",
			sizes: []string{"S", "M", "L", "XL"}, colors: []string{"black", "white", "navy"}, stock: 40,
		},
		{
			id: "slim-chinos", name: "Slim Fit Chinos",
			desc:  "Stretch twill chinos with a tapered leg",
			price: decimal.NewFromFloat(59.90), brand: "Meridian", category: "bottoms",
			sizes: []string{"30", "32", "34", "36"}, colors: []string{"khaki", "olive"}, stock: 25,
		},
		{
			id: "wool-overcoat", name: "Wool Blend Overcoat",
			desc:  "Single breasted mid-length overcoat",
			price: decimal.NewFromFloat(189.00), brand: "Harbor & Co", category: "outerwear",
			sizes: []string{"S", "M", "L"}, colors: []string{"charcoal", "camel"}, stock: 10,
		},
		{
			id: "canvas-sneaker", name: "Low Top Canvas Sneaker",
			desc:  "Vulcanized sole, cotton laces",
			price: decimal.NewFromFloat(45.00), brand: "Pace", category: "shoes",
			sizes: []string{"40", "41", "42", "43", "44"}, colors: []string{"white", "black"}, stock: 30,
		},
		{
			id: "linen-shirt", name: "Relaxed Linen Shirt",
			desc:  "Garment washed pure linen",
			price: decimal.NewFromFloat(69.50), brand: "Harbor & Co", category: "tops",
			sizes: []string{"S", "M", "L", "XL"}, colors: []string{"sand", "sky"}, stock: 20,
		},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, upsertProductSQL, p.id, p.name, p.desc, p.price, p.brand, p.category)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		for _, size := range p.sizes {
			for _, color := range p.colors {
				sku := p.id + "-" + size + "-" + color
				_, err := pool.Exec(ctx, upsertVariantSQL,
					uuid.New().String(), p.id, sku, size, color, int32(p.stock),
				)
				if err != nil {
					return errors.Wrapf(err, "upsert variant %s", sku)
				}
			}
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding standing coupons")

	nextYear := time.Now().AddDate(1, 0, 0)

	type seedCoupon struct {
		code        string
		description string
		kind        string
		value       decimal.Decimal
		minOrder    decimal.Decimal
		maxDiscount decimal.Decimal
		minQuantity int
		maxUses     int
		validUntil  *time.Time
	}

	coupons := []seedCoupon{
		{
			code: "DISCOUNT10", description: "10% off orders over 50",
			kind: "percentage", value: decimal.NewFromInt(10),
			minOrder: decimal.NewFromInt(50), maxDiscount: decimal.NewFromInt(25),
			validUntil: &nextYear,
		},
		{
			code: "DISCOUNT20", description: "20% off orders over 100",
			kind: "percentage", value: decimal.NewFromInt(20),
			minOrder: decimal.NewFromInt(100), maxDiscount: decimal.NewFromInt(60),
			validUntil: &nextYear,
		},
		{
			code: "SAVE50", description: "50 off orders over 200",
			kind: "fixed", value: decimal.NewFromInt(50),
			minOrder:   decimal.NewFromInt(200),
			validUntil: &nextYear,
		},
		{
			code: "WELCOME", description: "15 off your first order",
			kind: "fixed", value: decimal.NewFromInt(15),
			minOrder: decimal.NewFromInt(30), maxUses: 1000,
			validUntil: &nextYear,
		},
		{
			code: "FLASH30", description: "30% off when buying 3 or more items",
			kind: "percentage", value: decimal.NewFromInt(30),
			minQuantity: 3, maxDiscount: decimal.NewFromInt(80),
			validUntil: &nextYear,
		},
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.description, c.kind, c.value,
			c.minOrder, c.maxDiscount, int32(c.minQuantity), int32(c.maxUses), c.validUntil,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code), slog.String("description", c.description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, name, userRef string, scopes []string, key, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name, userRef, scopes)
	if err != nil {
		return errors.Wrapf(err, "upsert API key %s", id)
	}

	slog.Info("upserted API key", slog.String("id", id), slog.String("name", name))
	return nil
}
