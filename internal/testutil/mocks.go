package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

type historyKey struct {
	tokenID int64
	kind    entities.HistoryKind
}

// MockTokenRepository is an in-memory implementation of TokenRepository.
// It also owns the history logs so MockHistoryRepository can read what
// Create and Mutate appended.
type MockTokenRepository struct {
	mu            sync.Mutex
	tokens        map[int64]entities.Token
	history       map[historyKey][]entities.HistoryEntry
	nextID        int64
	nextHistoryID int64

	// Function hooks for custom behavior
	GetAllFunc           func(ctx context.Context) ([]entities.Token, error)
	GetByIDFunc          func(ctx context.Context, id int64) (*entities.Token, error)
	FindBySlugOrNameFunc func(ctx context.Context, slug, name string) (*entities.Token, error)
	CreateFunc           func(ctx context.Context, token *entities.Token, seed []entities.HistoryEntry) error
	MutateFunc           func(ctx context.Context, id int64, fn repositories.MutateFunc) (*entities.Token, error)
	DeleteFunc           func(ctx context.Context, id int64) (*entities.Token, error)

	// Call tracking
	Calls []MockCall
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens:  make(map[int64]entities.Token),
		history: make(map[historyKey][]entities.HistoryEntry),
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockTokenRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockTokenRepository) GetAll(ctx context.Context) ([]entities.Token, error) {
	m.record("GetAll")

	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]entities.Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		result = append(result, token)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *MockTokenRepository) GetByID(ctx context.Context, id int64) (*entities.Token, error) {
	m.record("GetByID", id)

	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token, ok := m.tokens[id]; ok {
		return &token, nil
	}
	return nil, nil
}

func (m *MockTokenRepository) FindBySlugOrName(ctx context.Context, slug, name string) (*entities.Token, error) {
	m.record("FindBySlugOrName", slug, name)

	if m.FindBySlugOrNameFunc != nil {
		return m.FindBySlugOrNameFunc(ctx, slug, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if token, ok := m.conflict(0, slug, name); ok {
		return &token, nil
	}
	return nil, nil
}

func (m *MockTokenRepository) Create(ctx context.Context, token *entities.Token, seed []entities.HistoryEntry) error {
	m.record("Create", token, seed)

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token, seed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conflict(0, token.Slug, token.Name); ok {
		return entities.ErrDuplicateToken
	}

	m.nextID++
	token.ID = m.nextID
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = token.CreatedAt
	}
	m.tokens[token.ID] = *token
	m.appendHistory(token.ID, seed)
	return nil
}

// Mutate holds the store lock for the whole read-modify-write, so
// concurrent mutations of the same token serialize.
func (m *MockTokenRepository) Mutate(ctx context.Context, id int64, fn repositories.MutateFunc) (*entities.Token, error) {
	m.record("Mutate", id)

	if m.MutateFunc != nil {
		return m.MutateFunc(ctx, id, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.tokens[id]
	if !ok {
		return nil, entities.ErrTokenNotFound
	}

	next, entries, err := fn(current)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	if _, dup := m.conflict(id, next.Slug, next.Name); dup {
		return nil, entities.ErrDuplicateToken
	}

	m.tokens[id] = next
	m.appendHistory(id, entries)
	return &next, nil
}

func (m *MockTokenRepository) Delete(ctx context.Context, id int64) (*entities.Token, error) {
	m.record("Delete", id)

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[id]
	if !ok {
		return nil, nil
	}
	delete(m.tokens, id)
	delete(m.history, historyKey{id, entities.KindTopVolume})
	delete(m.history, historyKey{id, entities.KindTradingVolume})
	return &token, nil
}

// conflict finds another token with the same name or slug; callers hold mu
func (m *MockTokenRepository) conflict(exceptID int64, slug, name string) (entities.Token, bool) {
	for id, t := range m.tokens {
		if id == exceptID {
			continue
		}
		if strings.EqualFold(t.Slug, slug) || t.Name == strings.ToUpper(name) {
			return t, true
		}
	}
	return entities.Token{}, false
}

// appendHistory stores entries in order; callers hold mu
func (m *MockTokenRepository) appendHistory(tokenID int64, entries []entities.HistoryEntry) {
	for _, e := range entries {
		m.nextHistoryID++
		e.ID = m.nextHistoryID
		e.TokenID = tokenID
		e.CreatedAt = e.Timestamp
		key := historyKey{tokenID, e.Kind}
		m.history[key] = append(m.history[key], e)
	}
}

// AddToken adds a token to the mock store, assigning an id when it has none
func (m *MockTokenRepository) AddToken(token *entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token.ID == 0 {
		m.nextID++
		token.ID = m.nextID
	} else if token.ID > m.nextID {
		m.nextID = token.ID
	}
	m.tokens[token.ID] = *token
}

// AddHistory appends entries to a token's logs without any checks
func (m *MockTokenRepository) AddHistory(tokenID int64, entries ...entities.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHistory(tokenID, entries)
}

// Token returns the stored state of a token
func (m *MockTokenRepository) Token(id int64) (entities.Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	return t, ok
}

// History returns a copy of one log in insertion order
func (m *MockTokenRepository) History(tokenID int64, kind entities.HistoryKind) []entities.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.history[historyKey{tokenID, kind}]
	out := make([]entities.HistoryEntry, len(src))
	copy(out, src)
	return out
}

// CallCount returns how many times method was called
func (m *MockTokenRepository) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all stored data and calls
func (m *MockTokenRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = make(map[int64]entities.Token)
	m.history = make(map[historyKey][]entities.HistoryEntry)
	m.nextID = 0
	m.nextHistoryID = 0
	m.Calls = make([]MockCall, 0)
}

// MockHistoryRepository reads the logs kept by a MockTokenRepository
type MockHistoryRepository struct {
	store *MockTokenRepository

	ListFunc    func(ctx context.Context, tokenID int64, kind entities.HistoryKind) ([]entities.HistoryEntry, error)
	SummaryFunc func(ctx context.Context, tokenID int64, kind entities.HistoryKind) (*repositories.HistorySummary, error)

	mu    sync.Mutex
	Calls []MockCall
}

func NewMockHistoryRepository(store *MockTokenRepository) *MockHistoryRepository {
	return &MockHistoryRepository{
		store: store,
		Calls: make([]MockCall, 0),
	}
}

func (m *MockHistoryRepository) List(ctx context.Context, tokenID int64, kind entities.HistoryKind) ([]entities.HistoryEntry, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "List", Args: []interface{}{tokenID, kind}})
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx, tokenID, kind)
	}

	entries := m.store.History(tokenID, kind)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func (m *MockHistoryRepository) Summary(ctx context.Context, tokenID int64, kind entities.HistoryKind) (*repositories.HistorySummary, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Summary", Args: []interface{}{tokenID, kind}})
	m.mu.Unlock()

	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, tokenID, kind)
	}

	entries, _ := m.List(ctx, tokenID, kind)
	summary := &repositories.HistorySummary{Count: int64(len(entries))}
	for _, e := range entries {
		if summary.FirstDate == nil || e.Date < *summary.FirstDate {
			date := e.Date
			summary.FirstDate = &date
		}
	}
	return summary, nil
}

// MockVolumeFetcher serves canned quotes keyed by token slug or exchange symbol
type MockVolumeFetcher struct {
	mu        sync.Mutex
	quotes    map[string]entities.VolumeQuote
	snapshots map[string]entities.MarketSnapshot

	FetchQuoteFunc func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error)
	SnapshotFunc   func(ctx context.Context, symbol string) (*entities.MarketSnapshot, error)

	Calls []MockCall
}

func NewMockVolumeFetcher() *MockVolumeFetcher {
	return &MockVolumeFetcher{
		quotes:    make(map[string]entities.VolumeQuote),
		snapshots: make(map[string]entities.MarketSnapshot),
		Calls:     make([]MockCall, 0),
	}
}

func (m *MockVolumeFetcher) FetchQuote(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "FetchQuote", Args: []interface{}{token.ID}})
	m.mu.Unlock()

	if m.FetchQuoteFunc != nil {
		return m.FetchQuoteFunc(ctx, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.quotes[strings.ToLower(token.Slug)]; ok {
		return &q, nil
	}
	return nil, entities.ErrSymbolNotFound
}

func (m *MockVolumeFetcher) Snapshot(ctx context.Context, symbol string) (*entities.MarketSnapshot, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Snapshot", Args: []interface{}{symbol}})
	m.mu.Unlock()

	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.snapshots[strings.ToUpper(symbol)]; ok {
		return &s, nil
	}
	return nil, entities.ErrSymbolNotFound
}

// SetQuote registers the quote returned for a token slug
func (m *MockVolumeFetcher) SetQuote(slug string, quote entities.VolumeQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[strings.ToLower(slug)] = quote
}

// SetSnapshot registers the snapshot returned for an exchange symbol
func (m *MockVolumeFetcher) SetSnapshot(symbol string, snap entities.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[strings.ToUpper(symbol)] = snap
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
