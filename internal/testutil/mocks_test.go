package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

func TestMockTokenRepository_CreateAndGet(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()

	token := CreateTestToken()
	seed := []entities.HistoryEntry{
		CreateTestEntry(entities.KindTopVolume, "2024-06-10", "100", entities.EntryManualEntry, FixtureTime),
	}

	if err := repo.Create(ctx, token, seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Name != "KOGE" {
		t.Errorf("expected KOGE, got %+v", got)
	}

	history := repo.History(token.ID, entities.KindTopVolume)
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].TokenID != token.ID {
		t.Errorf("expected token id %d, got %d", token.ID, history[0].TokenID)
	}

	missing, err := repo.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestMockTokenRepository_Duplicates(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, CreateTestToken(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.Create(ctx, CreateTestToken(TokenWithName("OTHER"), TokenWithSlug("KOGE")), nil)
	if !errors.Is(err, entities.ErrDuplicateToken) {
		t.Errorf("expected ErrDuplicateToken for slug clash, got %v", err)
	}

	found, err := repo.FindBySlugOrName(ctx, "nope", "koge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil {
		t.Error("expected name match")
	}
}

func TestMockTokenRepository_MutateAbortsOnError(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()
	token := CreateTestToken()
	repo.AddToken(token)

	boom := errors.New("boom")
	_, err := repo.Mutate(ctx, token.ID, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		current.TopToday = Dec("1")
		return current, []entities.HistoryEntry{{Kind: entities.KindTopVolume}}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	stored, _ := repo.Token(token.ID)
	if !stored.TopToday.Equal(Dec("100")) {
		t.Errorf("expected unchanged top today, got %s", stored.TopToday)
	}
	if n := len(repo.History(token.ID, entities.KindTopVolume)); n != 0 {
		t.Errorf("expected no history, got %d", n)
	}

	_, err = repo.Mutate(ctx, 999, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		return current, nil, nil
	})
	if !errors.Is(err, entities.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestMockTokenRepository_MutateSerializes(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()
	token := CreateTestToken(TokenWithTop("0", "0"))
	repo.AddToken(token)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Mutate(ctx, token.ID, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
				current.TopToday = current.TopToday.Add(Dec("1"))
				return current, nil, nil
			})
		}()
	}
	wg.Wait()

	stored, _ := repo.Token(token.ID)
	if !stored.TopToday.Equal(Dec("50")) {
		t.Errorf("expected 50, got %s", stored.TopToday)
	}
}

func TestMockTokenRepository_DeleteCascades(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()
	token := CreateTestToken()
	repo.AddToken(token)
	repo.AddHistory(token.ID, CreateTestEntry(entities.KindTradingVolume, "2024-06-10", "5", entities.EntryDailyFetch2Day, FixtureTime))

	deleted, err := repo.Delete(ctx, token.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted == nil || deleted.ID != token.ID {
		t.Fatalf("expected deleted token, got %+v", deleted)
	}
	if n := len(repo.History(token.ID, entities.KindTradingVolume)); n != 0 {
		t.Errorf("expected history removed, got %d", n)
	}

	again, err := repo.Delete(ctx, token.ID)
	if err != nil || again != nil {
		t.Errorf("expected nil, nil on second delete, got %v, %v", again, err)
	}
}

func TestMockTokenRepository_GetAllNewestFirst(t *testing.T) {
	repo := NewMockTokenRepository()
	ctx := context.Background()

	repo.AddToken(CreateTestToken(TokenWithName("OLD"), TokenWithCreatedAt(FixtureTime)))
	repo.AddToken(CreateTestToken(TokenWithName("NEW"), TokenWithCreatedAt(FixtureTime.Add(time.Hour))))

	tokens, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 || tokens[0].Name != "NEW" {
		t.Errorf("expected NEW first, got %+v", tokens)
	}
	if repo.CallCount("GetAll") != 1 {
		t.Errorf("expected 1 GetAll call, got %d", repo.CallCount("GetAll"))
	}
}

func TestMockHistoryRepository_Summary(t *testing.T) {
	store := NewMockTokenRepository()
	history := NewMockHistoryRepository(store)
	ctx := context.Background()

	store.AddHistory(1,
		CreateTestEntry(entities.KindTopVolume, "2024-06-10", "2", entities.EntryManualUpdate, FixtureTime.Add(time.Hour)),
		CreateTestEntry(entities.KindTopVolume, "2024-06-09", "1", entities.EntryManualEntry, FixtureTime),
	)

	summary, err := history.Summary(ctx, 1, entities.KindTopVolume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Count != 2 {
		t.Errorf("expected count 2, got %d", summary.Count)
	}
	if summary.FirstDate == nil || *summary.FirstDate != "2024-06-09" {
		t.Errorf("expected first date 2024-06-09, got %v", summary.FirstDate)
	}

	empty, err := history.Summary(ctx, 1, entities.KindTradingVolume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Count != 0 || empty.FirstDate != nil {
		t.Errorf("expected empty summary, got %+v", empty)
	}
}

func TestMockVolumeFetcher(t *testing.T) {
	fetcher := NewMockVolumeFetcher()
	ctx := context.Background()

	fetcher.SetQuote("koge", entities.VolumeQuote{VolumeToday: DecPtr("10")})

	quote, err := fetcher.FetchQuote(ctx, *CreateTestToken())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.VolumeToday.Equal(Dec("10")) {
		t.Errorf("expected 10, got %s", quote.VolumeToday)
	}

	_, err = fetcher.FetchQuote(ctx, *CreateTestToken(TokenWithName("NOPE")))
	if !errors.Is(err, entities.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestPointerTo(t *testing.T) {
	p := PointerTo("value")
	if p == nil || *p != "value" {
		t.Errorf("expected pointer to value, got %v", p)
	}
}
