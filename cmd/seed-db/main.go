// Command seed-db loads a product/combo catalog, a starter set of discount
// codes, and an admin API key into the database for local development and
// integration tests.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type comboJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type catalogJSON struct {
	Products []productJSON `json:"products"`
	Combos   []comboJSON   `json:"combos"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SMOKE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SMOKE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SMOKE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SMOKE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SMOKE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
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

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedDiscountCodes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discount codes")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const (
	upsertProductSQL = `
		INSERT INTO products (id, name, price, category, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			is_active = TRUE`

	upsertComboSQL = `
		INSERT INTO combos (id, name, price, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			is_active = TRUE`

	upsertDiscountCodeSQL = `
		INSERT INTO discount_codes (
			id, code, discount_type, discount_value, expiry_date,
			usage_limit, first_order_only, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			expiry_date = EXCLUDED.expiry_date,
			usage_limit = EXCLUDED.usage_limit,
			first_order_only = EXCLUDED.first_order_only,
			is_active = TRUE`

	upsertAPIKeySQL = `
		INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash,
			name = EXCLUDED.name,
			scopes = EXCLUDED.scopes,
			active = TRUE`
)

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var cat catalogJSON
	if err := json.Unmarshal(data, &cat); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting catalog",
		slog.Int("products", len(cat.Products)),
		slog.Int("combos", len(cat.Combos)),
	)

	for _, p := range cat.Products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	for _, c := range cat.Combos {
		if _, err := pool.Exec(ctx, upsertComboSQL, c.ID, c.Name, c.Price); err != nil {
			return errors.Wrapf(err, "upsert combo %s", c.ID)
		}

		slog.Info("upserted combo", slog.String("id", c.ID), slog.String("name", c.Name))
	}

	return nil
}

type discountSeed struct {
	code           string
	discountType   string
	value          decimal.Decimal
	expiryDate     time.Time
	usageLimit     *int
	firstOrderOnly bool
}

func seedDiscountCodes(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding discount codes")

	limit5 := 5
	limit100 := 100
	nextYear := time.Now().AddDate(1, 0, 0)

	codes := []discountSeed{
		{
			code:           "WELCOME10",
			discountType:   "percentage",
			value:          decimal.NewFromInt(10),
			expiryDate:     nextYear,
			firstOrderOnly: true,
		},
		{
			code:         "FEAST20",
			discountType: "percentage",
			value:        decimal.NewFromInt(20),
			expiryDate:   nextYear,
			usageLimit:   &limit100,
		},
		{
			code:         "SMOKE50",
			discountType: "fixed",
			value:        decimal.NewFromInt(50),
			expiryDate:   nextYear,
		},
		{
			code:         "TASTING5",
			discountType: "fixed",
			value:        decimal.NewFromInt(25),
			expiryDate:   nextYear,
			usageLimit:   &limit5,
		},
	}

	for _, c := range codes {
		if _, err := pool.Exec(ctx, upsertDiscountCodeSQL,
			uuid.NewString(), c.code, c.discountType, c.value,
			c.expiryDate, c.usageLimit, c.firstOrderOnly,
		); err != nil {
			return errors.Wrapf(err, "upsert discount code %s", c.code)
		}

		slog.Info("upserted discount code",
			slog.String("code", c.code),
			slog.String("type", c.discountType),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default admin key", []string{"manage_orders"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default admin key"))

	return nil
}
