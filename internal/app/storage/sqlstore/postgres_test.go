package sqlstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/app/domain/user"
	"github.com/R3E-Network/nodemap_service/internal/app/storage"
	"github.com/R3E-Network/nodemap_service/internal/platform/database"
	"github.com/R3E-Network/nodemap_service/internal/platform/migrations"
)

func TestStoreIntegrationPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverPostgres, dsn, database.Options{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db, database.DriverPostgres); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	u, err := store.CreateUser(ctx, user.User{Username: "pg-" + suffix, Email: "pg-" + suffix + "@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	defer store.DeleteUser(ctx, u.ID)

	if _, err := store.CreateUser(ctx, user.User{Username: "pg-" + suffix, Email: "other-" + suffix + "@example.com", PasswordHash: "x"}); err != storage.ErrDuplicateUsername {
		t.Fatalf("expected duplicate username, got %v", err)
	}

	nm, err := store.CreateNodemap(ctx, nodemap.Nodemap{UserID: u.ID, Name: "Trip", Goal: "Plan"})
	if err != nil {
		t.Fatalf("create nodemap: %v", err)
	}
	if _, err := store.CreateNodemap(ctx, nodemap.Nodemap{UserID: u.ID, Name: "Trip", Goal: "Plan"}); err != storage.ErrDuplicateName {
		t.Fatalf("expected duplicate name, got %v", err)
	}

	fav, err := store.ToggleNodemapFavorite(ctx, u.ID, nm.ID)
	if err != nil || !fav {
		t.Fatalf("toggle favorite: %v %v", fav, err)
	}
}
