// Command seed-db loads the catalog from a JSON file and provisions demo
// profiles with session tokens. It is meant for local development and the
// integration test environment, not production.
package main

import (
	"context"
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

	"github.com/raditya/toko-backend/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    []string        `json:"image_url"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminToken   string
		userToken    string
		demoOrder    bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminToken, "admin-token", "", "bearer token to seed for the admin profile (or TOKO_SEED_ADMIN_TOKEN)")
	flag.StringVar(&userToken, "user-token", "", "bearer token to seed for the customer profile (or TOKO_SEED_USER_TOKEN)")
	flag.BoolVar(&demoOrder, "demo-order", false, "seed one pending demo order for the customer")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminToken == "" {
		adminToken = os.Getenv("TOKO_SEED_ADMIN_TOKEN")
	}
	if userToken == "" {
		userToken = os.Getenv("TOKO_SEED_USER_TOKEN")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminToken, userToken, demoOrder); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

const (
	adminProfileID = "seed-admin"
	userProfileID  = "seed-user"
	demoOrderID    = "11111111-1111-1111-1111-111111111111"
)

func run(ctx context.Context, databaseURL, productsFile, adminToken, userToken string, demoOrder bool) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := seedProducts(ctx, pool, productsFile)
	if err != nil {
		return err
	}

	if adminToken != "" {
		if err := seedProfile(ctx, pool, adminProfileID, "Seed Admin", "admin", adminToken); err != nil {
			return errors.Wrap(err, "seed admin profile")
		}
	}
	if userToken != "" {
		if err := seedProfile(ctx, pool, userProfileID, "Seed Customer", "user", userToken); err != nil {
			return errors.Wrap(err, "seed customer profile")
		}
	}

	if demoOrder {
		if len(products) == 0 {
			return errors.New("demo order requires at least one seeded product")
		}
		if err := seedDemoOrder(ctx, pool, products[0]); err != nil {
			return errors.Wrap(err, "seed demo order")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) ([]productJSON, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, errors.Wrap(err, "parse products file")
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products (id, name, description, price, stock, image_url)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, description = EXCLUDED.description,
				price = EXCLUDED.price, stock = EXCLUDED.stock, image_url = EXCLUDED.image_url`,
			p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "insert product %s", p.ID)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return products, nil
}

func seedProfile(ctx context.Context, pool *pgxpool.Pool, id, name, role, token string) error {
	_, err := pool.Exec(ctx, `INSERT INTO profiles (id, full_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, role = EXCLUDED.role`,
		id, name, role,
	)
	if err != nil {
		return errors.Wrap(err, "insert profile")
	}

	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])
	_, err = pool.Exec(ctx, `INSERT INTO sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`,
		hash, id, time.Now().Add(30*24*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}

	slog.Info("seeded profile", slog.String("id", id), slog.String("role", role))
	return nil
}

// seedDemoOrder inserts one pending order for the seed customer so webhook
// reconciliation can be exercised without going through checkout.
func seedDemoOrder(ctx context.Context, pool *pgxpool.Pool, p productJSON) error {
	id, err := uuid.Parse(demoOrderID)
	if err != nil {
		return errors.Wrap(err, "parse demo order id")
	}

	total := p.Price.Add(decimal.NewFromInt(9000))
	_, err = pool.Exec(ctx, `INSERT INTO orders (id, user_id, status, total_amount, shipping_cost, courier, shipping_address, destination_id)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET status = 'pending', total_amount = EXCLUDED.total_amount`,
		id, userProfileID, total, decimal.NewFromInt(9000), "jne - REG", "Jl. Demo No. 1, Jakarta", "1234",
	)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	if _, err := pool.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return errors.Wrap(err, "clear order items")
	}
	_, err = pool.Exec(ctx, `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, 1, $3)`,
		id, p.ID, p.Price,
	)
	if err != nil {
		return errors.Wrap(err, "insert order item")
	}

	slog.Info("seeded demo order", slog.String("id", demoOrderID))
	return nil
}
