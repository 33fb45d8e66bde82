package authcore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memoryProvider is a map-backed UserProvider for tests.
type memoryProvider struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]UserRecord
	byEmail map[string]string
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		byID:    make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func (p *memoryProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return p.byID[id], nil
}

func (p *memoryProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (p *memoryProvider) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[input.Email]; exists {
		return UserRecord{}, ErrEmailTaken
	}
	p.nextID++
	user := UserRecord{
		UserID:       fmt.Sprintf("u%d", p.nextID),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Roles:        append([]string{}, input.Roles...),
	}
	p.byID[user.UserID] = user
	p.byEmail[user.Email] = user.UserID
	return user, nil
}

func (p *memoryProvider) UpdateUser(_ context.Context, userID string, changes UserChanges) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	if changes.Email != nil {
		if id, exists := p.byEmail[*changes.Email]; exists && id != userID {
			return UserRecord{}, ErrEmailTaken
		}
		delete(p.byEmail, user.Email)
		user.Email = *changes.Email
		p.byEmail[user.Email] = userID
	}
	if changes.Name != nil {
		user.Name = *changes.Name
	}
	if changes.PasswordHash != nil {
		user.PasswordHash = *changes.PasswordHash
	}
	if changes.OrganizationID != nil {
		user.OrganizationID = *changes.OrganizationID
	}
	if changes.Roles != nil {
		user.Roles = append([]string{}, changes.Roles...)
	}
	p.byID[userID] = user
	return user, nil
}

// delete removes a user, simulating account deletion behind the engine's
// back.
func (p *memoryProvider) delete(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if user, ok := p.byID[userID]; ok {
		delete(p.byEmail, user.Email)
		delete(p.byID, userID)
	}
}

func (p *memoryProvider) setRoles(userID string, roles []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := p.byID[userID]
	user.Roles = append([]string{}, roles...)
	p.byID[userID] = user
}

// recordingMailer captures outbound mail for assertions.
type recordingMailer struct {
	mu   sync.Mutex
	sent []string // body of each message, i.e. the delivered code
}

func (m *recordingMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Leeway = 0
	// Keep argon2 cheap; parameter strength is covered in package password.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testEnv struct {
	engine   *Engine
	redis    *miniredis.Miniredis
	provider *memoryProvider
	mailer   *recordingMailer
}

func newTestEngine(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := newMemoryProvider()
	mailer := &recordingMailer{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, redis: mr, provider: provider, mailer: mailer}
}

// mustSignUp runs the full sign-up flow and returns the created user.
func (env *testEnv) mustSignUp(t *testing.T, email, name, password string) UserRecord {
	t.Helper()
	ctx := context.Background()

	challenge, err := env.engine.RequestSignUp(ctx, email, name, password)
	if err != nil {
		t.Fatalf("RequestSignUp(%s): %v", email, err)
	}
	result, err := env.engine.ConfirmSignUp(ctx, email, challenge.Code)
	if err != nil {
		t.Fatalf("ConfirmSignUp(%s): %v", email, err)
	}
	return result.User
}

func advance(env *testEnv, d time.Duration) {
	env.redis.FastForward(d)
}
