package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/tsubuyaki/internal/backend"
	"github.com/sakif/tsubuyaki/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory backend.Store. It counts calls so tests can
// assert that nothing reached the backend.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	posts    []model.Post
	clock    time.Time

	// set to a non-nil error to simulate a backend failure
	getErr    error
	upsertErr error
	listErr   error
	insertErr error

	// insertGate, when set, blocks InsertPost until it is closed. A ctx
	// cancelled by then fails the insert, like a dropped connection.
	insertGate chan struct{}

	upserts int
	inserts int
	lists   int
	tokens  []string // access token seen by each UpsertProfile
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*model.Profile),
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.tokens = append(f.tokens, backend.AccessTokenFromContext(ctx))
	if f.upsertErr != nil {
		return f.upsertErr
	}
	copied := *profile
	if existing, ok := f.profiles[profile.ID]; ok {
		copied.Bio = existing.Bio
	}
	f.profiles[profile.ID] = &copied
	return nil
}

func (f *fakeStore) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Post, len(f.posts))
	copy(out, f.posts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertPost(ctx context.Context, post *model.Post) error {
	if f.insertGate != nil {
		<-f.insertGate
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	if err := post.Validate(); err != nil {
		return err
	}
	f.clock = f.clock.Add(time.Minute)
	post.ID = fmt.Sprintf("post-%d", len(f.posts)+1)
	post.CreatedAt = f.clock
	f.posts = append(f.posts, *post)
	return nil
}

func (f *fakeStore) calls() (upserts, inserts, lists int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts, f.inserts, f.lists
}

// fakeAuth is an in-memory backend.AuthProvider keyed by email.
type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	tokens   map[string]*model.Identity
	nextID   int

	// identityErr simulates an unreachable provider in CurrentIdentity.
	identityErr error
	// signInErr overrides SignInWithPassword's result.
	signInErr error
	// pending makes SignUp return no identity, like an email-confirmation gate.
	pending bool
	// issueToken makes SignUp sign the new user in straight away.
	issueToken bool
	// gate, when set, blocks SignInWithPassword and SignUp until it is closed.
	gate chan struct{}

	signIns  int
	signUps  int
	signOuts int
}

type fakeAccount struct {
	password string
	identity model.Identity
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		accounts: make(map[string]fakeAccount),
		tokens:   make(map[string]*model.Identity),
		nextID:   1,
	}
}

func (f *fakeAuth) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	tok := backend.AccessTokenFromContext(ctx)
	if tok == "" {
		return nil, nil
	}
	id, ok := f.tokens[tok]
	if !ok {
		return nil, nil
	}
	copied := *id
	return &copied, nil
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	acct, ok := f.accounts[email]
	if !ok || acct.password != password {
		return nil, &backend.AuthError{Message: "Invalid login credentials", Err: backend.ErrInvalidCredentials}
	}
	tok := "tok-" + acct.identity.ID
	id := acct.identity
	f.tokens[tok] = &id
	return &model.AuthSession{AccessToken: tok, Identity: id, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, req backend.SignUpRequest) (*model.SignUpResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps++
	if _, ok := f.accounts[req.Email]; ok {
		return nil, &backend.AuthError{Message: "User already registered", Err: backend.ErrAlreadyRegistered}
	}
	id := model.Identity{
		ID:       fmt.Sprintf("id%04d-abcd", f.nextID),
		Email:    req.Email,
		Metadata: req.Metadata,
	}
	f.nextID++
	f.accounts[req.Email] = fakeAccount{password: req.Password, identity: id}

	if f.pending {
		return &model.SignUpResult{}, nil
	}
	res := &model.SignUpResult{Identity: &id}
	if f.issueToken {
		res.AccessToken = "tok-" + id.ID
		f.tokens[res.AccessToken] = &id
	}
	return res, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	delete(f.tokens, backend.AccessTokenFromContext(ctx))
	return nil
}

var errBackendDown = errors.New("connection refused")

// trackFlights makes g report every caller that joins a flight. The
// returned func blocks until n more callers have joined.
func trackFlights(g *flightGroup) func(n int) {
	joined := make(chan string, 64)
	g.waiting = func(key string) { joined <- key }
	return func(n int) {
		for i := 0; i < n; i++ {
			<-joined
		}
	}
}
