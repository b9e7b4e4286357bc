// Command apikey mints an API key for the Scribe server. The raw key is printed once;
// only its bcrypt hash is stored.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	mw "github.com/kiranshivaraju/scribe/internal/api/middleware"
	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "sk_"

func main() {
	name := flag.String("name", "", "human-readable key name (required)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	if err := run(context.Background(), *name, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "apikey: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, out io.Writer) error {
	if name == "" {
		return errors.New("-name is required")
	}
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	var st store.Store
	switch dbCfg.Driver {
	case "sqlite":
		st, err = store.NewSQLiteStore(ctx, dbCfg.URL)
	default:
		pool, cerr := store.Connect(ctx, dbCfg)
		if cerr != nil {
			return cerr
		}
		if err := store.RunMigrations(dbCfg.URL, "migrations"); err != nil {
			pool.Close()
			return err
		}
		st = store.NewPostgresStore(pool)
	}
	if err != nil {
		return err
	}
	defer st.Close()

	raw, key, err := mint(name, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := st.CreateAPIKey(ctx, key); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("a key named %q already exists", name)
		}
		return err
	}

	fmt.Fprintf(out, "id:  %s\nkey: %s\n\nStore this key now; it cannot be shown again.\n", key.ID, raw)
	return nil
}

// mint generates a random key and the record that stores its hash.
func mint(name string, cost int) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	raw := keyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
