package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormTerminalRepoCreateAndGet(t *testing.T) {
	t.Parallel()

	repo := NewGormTerminalRepo(newTestDB(t))
	ctx := context.Background()

	terminal := &domain.Terminal{
		ID:           uuid.NewString(),
		ProviderID:   "acme-psp",
		TerminalID:   "12345678",
		Enabled:      true,
		PayeeCode:    "12345678901",
		Workstations: []string{"ws-1", "ws-2"},
	}
	if err := repo.Create(ctx, terminal); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if terminal.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be populated after create")
	}

	got, err := repo.GetByID(ctx, terminal.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ProviderID != "acme-psp" || got.TerminalID != "12345678" || !got.Enabled {
		t.Fatalf("GetByID() = %+v, want stored terminal", got)
	}
	if len(got.Workstations) != 2 || got.Workstations[1] != "ws-2" {
		t.Fatalf("Workstations = %v, want [ws-1 ws-2]", got.Workstations)
	}

	_, err = repo.GetByID(ctx, uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGormTerminalRepoCreateDuplicateProviderTerminal(t *testing.T) {
	t.Parallel()

	repo := NewGormTerminalRepo(newTestDB(t))
	ctx := context.Background()

	first := &domain.Terminal{ID: uuid.NewString(), ProviderID: "acme", TerminalID: "1000", PayeeCode: "12345678901"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := &domain.Terminal{ID: uuid.NewString(), ProviderID: "acme", TerminalID: "1000", PayeeCode: "12345678901"}
	if err := repo.Create(ctx, second); err == nil {
		t.Fatal("Create() expected unique violation for duplicate provider/terminal pair")
	}
}

func TestGormTerminalRepoListFiltersAndPaginates(t *testing.T) {
	t.Parallel()

	repo := NewGormTerminalRepo(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := repo.Create(ctx, &domain.Terminal{
			ID:         uuid.NewString(),
			ProviderID: "acme",
			TerminalID: fmt.Sprintf("100%d", i),
			Enabled:    i%2 == 0,
			PayeeCode:  "12345678901",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.Terminal{
		ID:         uuid.NewString(),
		ProviderID: "other",
		TerminalID: "2000",
		Enabled:    true,
		PayeeCode:  "12345678901",
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	provider := "acme"
	terminals, total, err := repo.List(ctx, ListParams{ProviderID: &provider, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(terminals) != 2 {
		t.Fatalf("page len = %d, want 2", len(terminals))
	}

	_, total, err = repo.List(ctx, ListParams{ProviderID: &provider, Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}

	enabled := true
	terminals, total, err = repo.List(ctx, ListParams{Enabled: &enabled})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 4 || len(terminals) != 4 {
		t.Fatalf("enabled total=%d len=%d, want 4/4", total, len(terminals))
	}
}

func TestGormBatchOutcomeRepoCreateAndGet(t *testing.T) {
	t.Parallel()

	repo := NewGormBatchOutcomeRepo(newTestDB(t))
	ctx := context.Background()

	outcome := domain.NewBatchOutcome(uuid.NewString(), 3)
	outcome.RecordSuccess()
	outcome.RecordFailure("duplicate key")
	outcome.RecordFailure("timeout")
	if err := outcome.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if err := repo.Create(ctx, outcome); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByBatchID(ctx, outcome.BatchID)
	if err != nil {
		t.Fatalf("GetByBatchID() error = %v", err)
	}
	if got.TotalRecords != 3 || got.SuccessRecords != 1 || got.FailedRecords != 2 {
		t.Fatalf("counts = %d/%d/%d, want 3/1/2", got.TotalRecords, got.SuccessRecords, got.FailedRecords)
	}
	if len(got.ErrorMessages) != 2 || got.ErrorMessages[0] != "duplicate key" || got.ErrorMessages[1] != "timeout" {
		t.Fatalf("ErrorMessages = %v, want [duplicate key timeout]", got.ErrorMessages)
	}
	if got.Status != domain.BatchStatusPartialFailure {
		t.Fatalf("Status = %s, want PARTIAL_FAILURE", got.Status)
	}

	if err := repo.Create(ctx, outcome); err == nil {
		t.Fatal("Create() expected error for second write of the same batch id")
	}

	_, err = repo.GetByBatchID(ctx, uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByBatchID() error = %v, want ErrNotFound", err)
	}
}

func TestModelConversionsNeverProduceNilSlices(t *testing.T) {
	t.Parallel()

	model := terminalModelFromDomain(&domain.Terminal{ID: "t1"})
	if model.Workstations == nil {
		t.Fatal("Workstations should be an empty slice, not nil")
	}

	outcome := batchOutcomeModelToDomain(&BatchOutcomeModel{BatchID: "b1"})
	if outcome.ErrorMessages == nil {
		t.Fatal("ErrorMessages should be an empty slice, not nil")
	}

	if terminalModelFromDomain(nil) != nil || batchOutcomeModelFromDomain(nil) != nil {
		t.Fatal("nil input should convert to nil")
	}
}

func TestGetByIDMalformedIDIsNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := NewGormTerminalRepo(db).GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("terminal GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := NewGormBatchOutcomeRepo(db).GetByBatchID(ctx, "batch-42"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("outcome GetByBatchID() error = %v, want ErrNotFound", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&TerminalModel{}, &BatchOutcomeModel{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
