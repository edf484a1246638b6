package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/keyward/keyward/internal/core/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("keyward_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	schemaPath := filepath.Join(".", "schema.sql")
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("failed to read schema: %s", err)
	}

	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %s", err)
	}

	return db, func() {
		db.Close()
		pgContainer.Terminate(ctx)
	}
}

func seedUser(t *testing.T, repo *PostgresRepository, email string) int64 {
	t.Helper()
	u := &domain.User{Email: email, Active: true, CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return u.ID
}

func seedKey(t *testing.T, repo *PostgresRepository, label string) int64 {
	t.Helper()
	k := &domain.Key{Label: label, Active: true, CreatedAt: time.Now().UTC()}
	if err := repo.CreateKey(context.Background(), k); err != nil {
		t.Fatalf("failed to seed key %s: %v", label, err)
	}
	return k.ID
}

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db)
	ctx := context.Background()

	holderID := seedUser(t, repo, "holder@example.com")
	otherID := seedUser(t, repo, "other@example.com")
	actorID := seedUser(t, repo, "frontdesk@example.com")
	keyID := seedKey(t, repo, "K-100")

	// 1. Assign opens custody
	first := &domain.Assignment{KeyID: keyID, AssignedTo: holderID, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, first); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("Expected assignment id to be populated")
	}

	// 2. A second open assignment violates the partial unique index
	second := &domain.Assignment{KeyID: keyID, AssignedTo: otherID, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, second); !errors.Is(err, domain.ErrKeyAlreadyAssigned) {
		t.Fatalf("Expected ErrKeyAlreadyAssigned, got %v", err)
	}

	// 3. Retirement is blocked while the key is out
	if err := repo.RetireKey(ctx, keyID); !errors.Is(err, domain.ErrKeyAssigned) {
		t.Fatalf("Expected ErrKeyAssigned, got %v", err)
	}

	// 4. Return closes exactly the open row
	if err := repo.CloseOpenAssignment(ctx, keyID, time.Now().UTC()); err != nil {
		t.Fatalf("CloseOpenAssignment failed: %v", err)
	}
	if err := repo.CloseOpenAssignment(ctx, keyID, time.Now().UTC()); !errors.Is(err, domain.ErrNoOpenAssignment) {
		t.Fatalf("Expected ErrNoOpenAssignment on repeat return, got %v", err)
	}

	// 5. The cycle restarts after return
	second.AssignedAt = time.Now().UTC()
	if err := repo.CreateAssignment(ctx, second); err != nil {
		t.Fatalf("Reassign after return failed: %v", err)
	}

	// 6. History is newest-first with holder/actor emails joined
	history, err := repo.ListAssignmentsForKey(ctx, keyID)
	if err != nil {
		t.Fatalf("ListAssignmentsForKey failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history rows, got %d", len(history))
	}
	if history[0].ID != second.ID || !history[0].Open() {
		t.Errorf("Expected newest open row first, got %+v", history[0])
	}
	if history[1].ID != first.ID || history[1].Open() {
		t.Errorf("Expected oldest closed row second, got %+v", history[1])
	}
	if history[0].AssignedToEmail != "other@example.com" || history[0].AssignedByEmail != "frontdesk@example.com" {
		t.Errorf("Expected joined emails, got %+v", history[0])
	}

	// 7. Broken references are classified
	bogus := &domain.Assignment{KeyID: 99999, AssignedTo: holderID, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, bogus); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
	bogus = &domain.Assignment{KeyID: keyID, AssignedTo: 99999, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, bogus); !errors.Is(err, domain.ErrInvalidHolder) {
		t.Errorf("Expected ErrInvalidHolder, got %v", err)
	}

	// 8. ListKeys reports availability
	if err := repo.CloseOpenAssignment(ctx, keyID, time.Now().UTC()); err != nil {
		t.Fatalf("CloseOpenAssignment failed: %v", err)
	}
	spareID := seedKey(t, repo, "K-101")
	open := &domain.Assignment{KeyID: spareID, AssignedTo: holderID, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, open); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}
	keys, err := repo.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	for _, k := range keys {
		switch k.ID {
		case keyID:
			if k.Assigned {
				t.Errorf("Expected %s to be available", k.Label)
			}
		case spareID:
			if !k.Assigned {
				t.Errorf("Expected %s to be assigned", k.Label)
			}
		}
	}

	// 9. Retirement closes the key to new assigns but keeps history readable
	if err := repo.RetireKey(ctx, keyID); err != nil {
		t.Fatalf("RetireKey failed: %v", err)
	}
	late := &domain.Assignment{KeyID: keyID, AssignedTo: holderID, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
	if err := repo.CreateAssignment(ctx, late); !errors.Is(err, domain.ErrKeyRetired) {
		t.Errorf("Expected ErrKeyRetired, got %v", err)
	}
	keys, err = repo.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	for _, k := range keys {
		if k.ID == keyID {
			t.Errorf("Expected retired key %s to be absent from the list", k.Label)
		}
	}
	history, err = repo.ListAssignmentsForKey(ctx, keyID)
	if err != nil || len(history) != 2 {
		t.Errorf("Expected retired key history to stay readable, got %d rows (%v)", len(history), err)
	}

	// 10. Token round trip
	expires := time.Now().Add(24 * time.Hour).UTC()
	token := &domain.APIToken{
		ID:          "550e8400-e29b-41d4-a716-446655440000",
		UserID:      actorID,
		Name:        "front-desk",
		TokenHash:   "deadbeef",
		TokenPrefix: "kwd_dead",
		Role:        domain.RoleIssuer,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   &expires,
	}
	if err := repo.CreateAPIToken(ctx, token); err != nil {
		t.Fatalf("CreateAPIToken failed: %v", err)
	}
	got, err := repo.GetAPITokenByHash(ctx, "deadbeef")
	if err != nil || got == nil || got.UserID != actorID {
		t.Fatalf("GetAPITokenByHash failed: %+v (%v)", got, err)
	}
	if err := repo.RevokeAPIToken(ctx, token.ID); err != nil {
		t.Fatalf("RevokeAPIToken failed: %v", err)
	}
	got, err = repo.GetAPITokenByHash(ctx, "deadbeef")
	if err != nil || got == nil || got.Active {
		t.Fatalf("Expected revoked token, got %+v (%v)", got, err)
	}
}

func TestPostgresRepository_ConcurrentAssign(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db)
	ctx := context.Background()

	actorID := seedUser(t, repo, "frontdesk@example.com")
	const n = 16
	holders := make([]int64, n)
	for i := 0; i < n; i++ {
		holders[i] = seedUser(t, repo, string(rune('a'+i))+"@example.com")
	}
	keyID := seedKey(t, repo, "K-contended")

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(holder int64) {
			defer wg.Done()
			a := &domain.Assignment{KeyID: keyID, AssignedTo: holder, AssignedBy: actorID, AssignedAt: time.Now().UTC()}
			results <- repo.CreateAssignment(ctx, a)
		}(holders[i])
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrKeyAlreadyAssigned):
			losses++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != n-1 {
		t.Fatalf("Expected exactly 1 winner and %d losers, got %d winners / %d losers", n-1, wins, losses)
	}

	open, err := repo.GetOpenAssignment(ctx, keyID)
	if err != nil || open == nil {
		t.Fatalf("Expected one open assignment, got %+v (%v)", open, err)
	}
}
