package accounts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
	"github.com/trentd187/match-point-league/internal/identity"
	"github.com/trentd187/match-point-league/internal/models"
	"github.com/trentd187/match-point-league/internal/store"
	"github.com/trentd187/match-point-league/internal/zipcode"
)

// --- mocks ---

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) CreateAccount(ctx context.Context, email, password, displayName string) (*identity.Account, error) {
	args := m.Called(ctx, email, password, displayName)
	if a, _ := args.Get(0).(*identity.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentity) DeleteAccount(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}
func (m *mockIdentity) SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error) {
	args := m.Called(ctx, email, password)
	if a, _ := args.Get(0).(*identity.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*models.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Mint(u *models.User) (string, error) {
	args := m.Called(u)
	return args.String(0), args.Error(1)
}

// staticLookup answers ZIP lookups from a fixed table.
type staticLookup map[string]*zipcode.CityInfo

func (l staticLookup) Lookup(_ context.Context, zip string) (*zipcode.CityInfo, bool) {
	info, ok := l[zip]
	return info, ok
}

// --- in-memory fakes ---

// memStore enforces the unique email constraint the way Postgres does.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]models.User
	creates int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]models.User)}
}

func (s *memStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if _, taken := s.rows[u.Email]; taken {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", Message: "duplicate key value"}
	}
	u.ID = uuid.New()
	s.rows[u.Email] = *u
	return nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// memIdentity hands out a fresh account for every create, like a provider that
// has not yet seen a concurrent create for the same address.
type memIdentity struct {
	mu       sync.Mutex
	next     int
	accounts map[string]string
	deleted  []string
}

func newMemIdentity() *memIdentity {
	return &memIdentity{accounts: make(map[string]string)}
}

func (p *memIdentity) CreateAccount(_ context.Context, email, _, displayName string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	uid := fmt.Sprintf("uid-%d", p.next)
	p.accounts[uid] = email
	return &identity.Account{UID: uid, Email: email, DisplayName: displayName}, nil
}

func (p *memIdentity) DeleteAccount(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.accounts, uid)
	p.deleted = append(p.deleted, uid)
	return nil
}

func (p *memIdentity) SignInWithPassword(context.Context, string, string) (*identity.Account, error) {
	return nil, &identity.Error{Op: "sign in", Code: identity.CodeUnknown}
}
