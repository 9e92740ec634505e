package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	order []string

	CreateFunc  func(ctx context.Context, user *domain.User) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.User, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

func NewMockUserRepository(users ...*domain.User) *MockUserRepository {
	m := &MockUserRepository{
		users: make(map[string]*domain.User),
	}
	for _, u := range users {
		m.users[u.ID] = u
		m.order = append(m.order, u.ID)
	}
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Document == user.Document {
			return domain.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	m.order = append(m.order, user.ID)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []*domain.User
	for i := offset; i < len(m.order) && len(users) < limit; i++ {
		users = append(users, m.users[m.order[i]])
	}
	return users, nil
}

// MockContributionRepository is an in-memory ContributionRepository. Reads
// return copies so callers cannot mutate stored state without UpdateRedeemed.
type MockContributionRepository struct {
	mu            sync.RWMutex
	contributions map[string]*domain.Contribution

	SaveFunc                  func(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution) error
	FindByUserIDFunc          func(ctx context.Context, userID string) ([]*domain.Contribution, error)
	FindByUserIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Contribution, error)
	UpdateRedeemedFunc        func(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution, updatedAt time.Time) error

	UpdateRedeemedCalls int
}

func NewMockContributionRepository(contributions ...*domain.Contribution) *MockContributionRepository {
	m := &MockContributionRepository{
		contributions: make(map[string]*domain.Contribution),
	}
	for _, c := range contributions {
		m.contributions[c.ID] = copyContribution(c)
	}
	return m
}

func (m *MockContributionRepository) Save(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, contribution)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributions[contribution.ID] = copyContribution(contribution)
	return nil
}

func (m *MockContributionRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Contribution, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	return m.byUser(userID), nil
}

func (m *MockContributionRepository) FindByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Contribution, error) {
	if m.FindByUserIDForUpdateFunc != nil {
		return m.FindByUserIDForUpdateFunc(ctx, tx, userID)
	}
	return m.byUser(userID), nil
}

func (m *MockContributionRepository) UpdateRedeemed(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution, updatedAt time.Time) error {
	if m.UpdateRedeemedFunc != nil {
		return m.UpdateRedeemedFunc(ctx, tx, contribution, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.contributions[contribution.ID]
	if !ok {
		return domain.ErrContributionNotFound
	}
	stored.RedeemedAmount = contribution.RedeemedAmount
	m.UpdateRedeemedCalls++
	return nil
}

// Get returns a copy of the stored contribution.
func (m *MockContributionRepository) Get(id string) (*domain.Contribution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contributions[id]
	if !ok {
		return nil, false
	}
	return copyContribution(c), true
}

func (m *MockContributionRepository) byUser(userID string) []*domain.Contribution {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Contribution
	for _, c := range m.contributions {
		if c.UserID == userID {
			out = append(out, copyContribution(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContributedAt.Equal(out[j].ContributedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ContributedAt.Before(out[j].ContributedAt)
	})
	return out
}

func copyContribution(c *domain.Contribution) *domain.Contribution {
	cp := *c
	cp.Vestings = append([]domain.VestingEntry(nil), c.Vestings...)
	return &cp
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository.
type MockWithdrawalRepository struct {
	mu          sync.RWMutex
	withdrawals []*domain.Withdrawal

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, withdrawal *domain.Withdrawal) error
	ListByUserFunc func(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error)
}

func NewMockWithdrawalRepository() *MockWithdrawalRepository {
	return &MockWithdrawalRepository{}
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, withdrawal *domain.Withdrawal) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, withdrawal)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.withdrawals {
		if w.ID == withdrawal.ID {
			return domain.ErrDuplicateWithdrawal
		}
	}
	m.withdrawals = append(m.withdrawals, withdrawal)
	return nil
}

func (m *MockWithdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Withdrawal
	for i := len(m.withdrawals) - 1; i >= 0; i-- {
		if m.withdrawals[i].UserID == userID {
			out = append(out, m.withdrawals[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored withdrawal in insertion order.
func (m *MockWithdrawalRepository) All() []*domain.Withdrawal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Withdrawal(nil), m.withdrawals...)
}

// MockBalanceProjectionRepository is a mock implementation of BalanceProjectionRepository.
type MockBalanceProjectionRepository struct {
	mu          sync.RWMutex
	projections map[string]domain.BalanceProjection

	FindByUserIDFunc   func(ctx context.Context, userID string) (*domain.BalanceProjection, error)
	UpsertFunc         func(ctx context.Context, projection *domain.BalanceProjection) error
	InsertIfAbsentFunc func(ctx context.Context, projection *domain.BalanceProjection) (bool, error)

	UpsertCalls         int
	InsertIfAbsentCalls int
}

func NewMockBalanceProjectionRepository() *MockBalanceProjectionRepository {
	return &MockBalanceProjectionRepository{
		projections: make(map[string]domain.BalanceProjection),
	}
}

func (m *MockBalanceProjectionRepository) FindByUserID(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projections[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MockBalanceProjectionRepository) Upsert(ctx context.Context, projection *domain.BalanceProjection) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, projection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if existing, ok := m.projections[projection.UserID]; ok && existing.CalculatedAt.After(projection.CalculatedAt) {
		return nil
	}
	m.projections[projection.UserID] = *projection
	return nil
}

func (m *MockBalanceProjectionRepository) InsertIfAbsent(ctx context.Context, projection *domain.BalanceProjection) (bool, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, projection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertIfAbsentCalls++
	if _, ok := m.projections[projection.UserID]; ok {
		return false, nil
	}
	m.projections[projection.UserID] = *projection
	return true, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}

// Events returns every stored outbox event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	Begun     int
	Committed int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Begun++
	return &MockTransaction{CommitFunc: func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Committed++
		return nil
	}}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	Prefix       string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "mock-id-"}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s%d", m.Prefix, m.counter)
}

// MockClock is a settable Clock.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now.UTC()}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now.UTC()
}

// MockUserLocker is an in-process UserLocker that records acquisitions.
type MockUserLocker struct {
	LockFunc func(ctx context.Context, userID string) (func(), error)

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	Acquired []string
	Released int
}

func NewMockUserLocker() *MockUserLocker {
	return &MockUserLocker{locks: make(map[string]*sync.Mutex)}
}

func (m *MockUserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, userID)
	}
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()

	m.mu.Lock()
	m.Acquired = append(m.Acquired, userID)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.Released++
		m.mu.Unlock()
		l.Unlock()
	}, nil
}

// MockEventPublisher records published events and optionally forwards them
// synchronously to Handler.
type MockEventPublisher struct {
	PublishFunc func(ctx context.Context, event domain.Event) error
	Handler     func(ctx context.Context, event domain.Event) error

	mu     sync.Mutex
	events []domain.Event
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.Handler != nil {
		return m.Handler(ctx, event)
	}
	return nil
}

// Events returns the published events in order.
func (m *MockEventPublisher) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
