//go:build unit

package caddy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dbf/caddy-shib-remoteuser/internal/adapters/driven/userstore"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/domain"
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// mockUserBackend is a test double for ports.UserBackend.
type mockUserBackend struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (m *mockUserBackend) Authenticate(ctx context.Context, username string, attrs map[string]string) (*domain.User, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.users[username], nil
}

var _ ports.UserBackend = (*mockUserBackend)(nil)

// countingHooks records hook invocations and the session state seen by
// SetupSession.
type countingHooks struct {
	profileCalls   int
	sessionCalls   int
	sawAuthedState bool
	err            error
}

func (h *countingHooks) MakeProfile(ctx context.Context, user *domain.User, attrs map[string]string) error {
	h.profileCalls++
	return h.err
}

func (h *countingHooks) SetupSession(ctx context.Context, session *domain.LoginSession) error {
	h.sessionCalls++
	h.sawAuthedState = session.Authenticated
	return h.err
}

var _ ports.LoginHooks = (*countingHooks)(nil)

// countingRecorder tallies metrics calls.
type countingRecorder struct {
	logins           int
	rejections       int
	validationErrors int
	added, removed   int
}

func (r *countingRecorder) RecordLogin(success bool) {
	if success {
		r.logins++
	} else {
		r.rejections++
	}
}

func (r *countingRecorder) RecordValidationError() { r.validationErrors++ }

func (r *countingRecorder) RecordGroupSync(added, removed int) {
	r.added += added
	r.removed += removed
}

var _ ports.MetricsRecorder = (*countingRecorder)(nil)

func newTestHandler(t *testing.T, cfg Config, backend ports.UserBackend, store ports.GroupStore) *ShibRemoteUser {
	t.Helper()
	return NewShibRemoteUserForTest(cfg, backend, store, nil, nil, nil)
}

func newRequestContext(headers http.Header) *ports.RequestContext {
	return &ports.RequestContext{
		Headers: headers,
		User:    &ports.UserState{},
		Session: domain.NewAnonymousSession(),
	}
}

func TestAuthenticate_NoHeader_IsNoOp(t *testing.T) {
	backend := &mockUserBackend{}
	s := newTestHandler(t, Config{}, backend, nil)

	rc := newRequestContext(http.Header{})
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if rc.User.Authenticated {
		t.Error("anonymous request should stay anonymous")
	}
	if rc.SessionDirty {
		t.Error("session should not be mutated without an asserted identity")
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times, want 0", backend.calls)
	}
}

func TestAuthenticate_NilUserSlot_IsConfigError(t *testing.T) {
	s := newTestHandler(t, Config{}, &mockUserBackend{}, nil)

	rc := newRequestContext(http.Header{})
	rc.User = nil

	err := s.authenticate(context.Background(), rc)
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("authenticate = %v, want *domain.AppError", err)
	}
	if appErr.Code != domain.ErrCodeConfigMissing {
		t.Errorf("Code = %q, want %q", appErr.Code, domain.ErrCodeConfigMissing)
	}
}

func TestAuthenticate_Login(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe", Email: "jdoe@example.com"},
	}}
	cfg := Config{
		Attributes: []AttributeRuleConfig{
			{Header: "X-Shib-Cn", Name: "cn"},
		},
	}
	s := newTestHandler(t, cfg, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")
	headers.Set("X-Shib-Cn", "Jane Doe")

	rc := newRequestContext(headers)
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if !rc.User.Authenticated || rc.User.User == nil || rc.User.User.Username != "jdoe" {
		t.Fatalf("user slot = %+v, want authenticated jdoe", rc.User)
	}
	if !rc.Session.Authenticated || rc.Session.Username != "jdoe" {
		t.Errorf("session = %+v, want authenticated jdoe", rc.Session)
	}
	if !rc.SessionDirty {
		t.Error("login must mark the session dirty")
	}

	attrs := rc.Session.ShibAttributes()
	if attrs["cn"] != "Jane Doe" {
		t.Errorf("attrs[cn] = %q, want %q", attrs["cn"], "Jane Doe")
	}
	if attrs["username"] != "jdoe" {
		t.Errorf("attrs[username] = %q, want %q", attrs["username"], "jdoe")
	}
}

func TestAuthenticate_FastPath_DoesNotRewriteSession(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	s := newTestHandler(t, Config{}, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")

	rc := newRequestContext(headers)
	rc.User = &ports.UserState{User: &domain.User{Username: "jdoe"}, Authenticated: true}
	rc.Session.Username = "jdoe"
	rc.Session.Authenticated = true

	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if rc.SessionDirty {
		t.Error("fast path must not touch the session")
	}
	if backend.calls != 0 {
		t.Errorf("fast path called the backend %d times, want 0", backend.calls)
	}
}

func TestAuthenticate_DifferentUser_Relogs(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"asmith": {Username: "asmith"},
	}}
	s := newTestHandler(t, Config{}, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "asmith")

	rc := newRequestContext(headers)
	rc.User = &ports.UserState{User: &domain.User{Username: "jdoe"}, Authenticated: true}
	rc.Session.Username = "jdoe"
	rc.Session.Authenticated = true
	rc.Session.SetValue("theme", "dark")

	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if rc.User.User.Username != "asmith" {
		t.Errorf("user = %q, want %q", rc.User.User.Username, "asmith")
	}
	if !rc.SessionDirty {
		t.Error("relogin must mark the session dirty")
	}
	if _, ok := rc.Session.Value("theme"); ok {
		t.Error("previous user's session values must be flushed on relogin")
	}
	if rc.Session.ShibAttributes() == nil {
		t.Error("freshly parsed attributes must survive the flush")
	}
}

func TestAuthenticate_MissingRequiredAttribute(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	recorder := &countingRecorder{}
	cfg := Config{
		Attributes: []AttributeRuleConfig{
			{Header: "X-Shib-Cn", Name: "cn", Required: true},
			{Header: "X-Shib-Mail", Name: "mail", Required: true},
		},
	}
	s := NewShibRemoteUserForTest(cfg, backend, nil, nil, nil, recorder)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")
	headers.Set("X-Shib-Cn", "Jane Doe")

	rc := newRequestContext(headers)
	err := s.authenticate(context.Background(), rc)

	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("authenticate = %v, want *domain.ValidationError", err)
	}

	// The partial map is visible both on the error and in the session.
	if valErr.Attributes["cn"] != "Jane Doe" {
		t.Errorf("error attrs = %v, want partial map with cn", valErr.Attributes)
	}
	if !rc.SessionDirty {
		t.Error("partial attributes must still be written to the session")
	}
	if got := rc.Session.ShibAttributes(); got["cn"] != "Jane Doe" {
		t.Errorf("session attrs = %v, want partial map with cn", got)
	}
	if backend.calls != 0 {
		t.Error("backend must not be consulted on a validation failure")
	}
	if recorder.validationErrors != 1 {
		t.Errorf("validationErrors = %d, want 1", recorder.validationErrors)
	}
}

func TestAuthenticate_BackendRejection_LeavesAnonymous(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{}}
	recorder := &countingRecorder{}
	s := NewShibRemoteUserForTest(Config{}, backend, nil, nil, nil, recorder)

	headers := http.Header{}
	headers.Set("X-Remote-User", "stranger")

	rc := newRequestContext(headers)
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if rc.User.Authenticated {
		t.Error("rejected identity must stay anonymous")
	}
	if recorder.rejections != 1 {
		t.Errorf("rejections = %d, want 1", recorder.rejections)
	}
}

func TestAuthenticate_BackendError(t *testing.T) {
	backend := &mockUserBackend{err: errors.New("directory unavailable")}
	s := newTestHandler(t, Config{}, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")

	rc := newRequestContext(headers)
	err := s.authenticate(context.Background(), rc)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("authenticate = %v, want *domain.AppError", err)
	}
	if appErr.Code != domain.ErrCodeBackendError {
		t.Errorf("Code = %q, want %q", appErr.Code, domain.ErrCodeBackendError)
	}
}

func TestAuthenticate_UnquoteUsername(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jane@example.com": {Username: "jane@example.com"},
	}}
	cfg := Config{UnquoteAttributes: true}
	s := newTestHandler(t, cfg, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jane%40example.com")

	rc := newRequestContext(headers)
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if rc.User.User == nil || rc.User.User.Username != "jane@example.com" {
		t.Errorf("user = %+v, want jane@example.com", rc.User.User)
	}
}

func TestAuthenticate_UsernameTransform(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	cfg := Config{UsernameTransform: "localpart"}
	s := newTestHandler(t, cfg, backend, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe@example.edu")

	rc := newRequestContext(headers)
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if rc.User.User == nil || rc.User.User.Username != "jdoe" {
		t.Errorf("user = %+v, want jdoe", rc.User.User)
	}
}

func TestAuthenticate_GroupSync_FullReconciliation(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	store := userstore.NewInMemoryGroupStore()
	ctx := context.Background()

	// Pre-existing memberships: one to keep, one to remove.
	for _, g := range []string{"staff", "legacy"} {
		if err := store.EnsureGroup(ctx, g); err != nil {
			t.Fatal(err)
		}
		if err := store.AddUserToGroup(ctx, "jdoe", g); err != nil {
			t.Fatal(err)
		}
	}

	recorder := &countingRecorder{}
	cfg := Config{
		SyncGroups:   true,
		GroupHeaders: []string{"X-Shib-Groups"},
	}
	s := NewShibRemoteUserForTest(cfg, backend, store, nil, nil, recorder)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")
	headers.Set("X-Shib-Groups", "staff;admins")

	rc := newRequestContext(headers)
	if err := s.authenticate(ctx, rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	got, err := store.ListUserGroups(ctx, "jdoe")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"admins", "staff"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("groups = %v, want %v", got, want)
	}
	if recorder.added != 1 || recorder.removed != 1 {
		t.Errorf("sync metrics = +%d/-%d, want +1/-1", recorder.added, recorder.removed)
	}
}

func TestAuthenticate_GroupSyncDisabled_StoreUntouched(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	store := userstore.NewInMemoryGroupStore()
	cfg := Config{
		GroupHeaders: []string{"X-Shib-Groups"},
	}
	s := newTestHandler(t, cfg, backend, store)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")
	headers.Set("X-Shib-Groups", "staff;admins")

	ctx := context.Background()
	rc := newRequestContext(headers)
	if err := s.authenticate(ctx, rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	got, err := store.ListUserGroups(ctx, "jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("groups = %v, want none when sync is disabled", got)
	}
}

func TestAuthenticate_HooksCalledOncePerLogin(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	hooks := &countingHooks{}
	s := NewShibRemoteUserForTest(Config{}, backend, nil, nil, hooks, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")

	rc := newRequestContext(headers)
	ctx := context.Background()
	if err := s.authenticate(ctx, rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if hooks.profileCalls != 1 || hooks.sessionCalls != 1 {
		t.Errorf("hooks = %d/%d calls, want 1/1", hooks.profileCalls, hooks.sessionCalls)
	}
	if !hooks.sawAuthedState {
		t.Error("SetupSession must run after the session was established")
	}

	// Second pass takes the fast path: hooks must not fire again.
	if err := s.authenticate(ctx, rc); err != nil {
		t.Fatalf("second authenticate: %v", err)
	}
	if hooks.profileCalls != 1 || hooks.sessionCalls != 1 {
		t.Errorf("hooks after fast path = %d/%d calls, want 1/1", hooks.profileCalls, hooks.sessionCalls)
	}
}

func TestAuthenticate_HooksCalledOnceWithGroupSync(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	hooks := &countingHooks{}
	cfg := Config{
		SyncGroups:   true,
		GroupHeaders: []string{"X-Shib-Groups"},
	}
	s := NewShibRemoteUserForTest(cfg, backend, userstore.NewInMemoryGroupStore(), nil, hooks, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")
	headers.Set("X-Shib-Groups", "staff;admins")

	rc := newRequestContext(headers)
	if err := s.authenticate(context.Background(), rc); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if hooks.profileCalls != 1 || hooks.sessionCalls != 1 {
		t.Errorf("hooks = %d/%d calls, want 1/1 with group sync enabled", hooks.profileCalls, hooks.sessionCalls)
	}
}

func TestAuthenticate_HookError(t *testing.T) {
	backend := &mockUserBackend{users: map[string]*domain.User{
		"jdoe": {Username: "jdoe"},
	}}
	hooks := &countingHooks{err: errors.New("profile store down")}
	s := NewShibRemoteUserForTest(Config{}, backend, nil, nil, hooks, nil)

	headers := http.Header{}
	headers.Set("X-Remote-User", "jdoe")

	rc := newRequestContext(headers)
	err := s.authenticate(context.Background(), rc)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("authenticate = %v, want *domain.AppError", err)
	}
	if appErr.Code != domain.ErrCodeBackendError {
		t.Errorf("Code = %q, want %q", appErr.Code, domain.ErrCodeBackendError)
	}
}
