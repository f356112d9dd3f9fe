package identity

import (
	"context"
	"fmt"
	"sync"
)

// User is the authenticated actor as reported by the session layer.
// Roles are plain strings here; the access engine parses them into its
// own role type.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Active bool     `json:"active"`
	Roles  []string `json:"roles"`
}

// Provider resolves the current authenticated user for a request.
// Implementations are expected to be fast and local; the engine treats
// a nil user or an error as "not authenticated" and fails closed.
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

type contextKey string

const userKey contextKey = "identity_user"

// WithUser attaches an authenticated user to the context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// FromContext returns the user attached to the context, or nil.
func FromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey).(*User)
	return user
}

// ContextProvider resolves the current user from the request context,
// as populated by the HTTP middleware.
type ContextProvider struct{}

// CurrentUser returns the user stored in ctx, or nil when absent.
func (ContextProvider) CurrentUser(ctx context.Context) (*User, error) {
	return FromContext(ctx), nil
}

// Directory is a user lookup consulted by the HTTP middleware to turn
// an authenticated user id into a full user record.
type Directory interface {
	Lookup(ctx context.Context, id string) (*User, error)
}

// MemoryDirectory is an in-process Directory, used for embedding and
// tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryDirectory creates a directory seeded with the given users.
func NewMemoryDirectory(users ...*User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]*User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Add inserts or replaces a user record.
func (d *MemoryDirectory) Add(user *User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

// Lookup returns the user with the given id.
func (d *MemoryDirectory) Lookup(_ context.Context, id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", id)
	}
	// Copy so callers cannot mutate directory state.
	out := *user
	out.Roles = append([]string(nil), user.Roles...)
	return &out, nil
}

// StaticProvider always returns the same user. Test helper.
type StaticProvider struct {
	User *User
	Err  error
}

// CurrentUser returns the configured user and error.
func (p StaticProvider) CurrentUser(context.Context) (*User, error) {
	return p.User, p.Err
}
