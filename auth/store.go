/*
Package auth owns the current session: who is signed in and how the
session survives a restart.

STATES:
  Anonymous --Login--> Authenticating --ok--> Authenticated
      ^                      |                      |
      +-------fail-----------+                      |
      +-------------------Logout / CheckAuth fail---+

SESSION SIDE CHANNEL:
  Besides the auth-storage snapshot ({user, isAuthenticated}), a successful
  Login writes the session token and user record under their own keys.
  CheckAuth reads the token back: no token means anonymous with no remote
  call; a token is resolved through the Authenticator.

OVERLAPPING CALLS:
  Login and Logout advance a sequence number. A Login that resolves after a
  later Logout is dropped and never resurrects the session. CheckAuth only
  reads the sequence: its result is dropped when a Login or Logout started
  meanwhile, and it never cancels a credential exchange.

ROLES:
  A user whose role is outside the Role set is refused at Login, CheckAuth
  and Hydrate, so a signed-in user always has a valid role.

SEE ALSO:
  - role.go: Role enum and User
  - remote/mock.go: Authenticator with bcrypt-checked fixture users
*/
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/certdash/generic"
)

// Phase is the session state machine position.
type Phase int

const (
	Anonymous Phase = iota
	Authenticating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for _, candidate := range []Phase{Anonymous, Authenticating, Authenticated} {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("auth: unknown phase %q", b)
}

// Session is what a successful credential check yields.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Authenticator verifies credentials and resolves session tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Session, error)
	Resolve(ctx context.Context, token string) (User, error)
}

// State is an immutable copy of the auth store.
type State struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Phase           Phase  `json:"phase"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
	Version         uint64 `json:"version"`
}

// Snapshot is the persisted subset of State.
type Snapshot struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// Store holds the current session.
type Store struct {
	auth Authenticator
	opts generic.Options
	snap *generic.SnapshotWriter
	subs generic.Broadcaster[State]

	mu       sync.Mutex
	user     *User
	inflight int
	err      string
	seq      uint64
	version  uint64

	// sideMu serializes writes to the token/user side channel.
	sideMu sync.Mutex
}

// NewStore creates an anonymous auth store.
func NewStore(a Authenticator, opts ...generic.Option) *Store {
	o := generic.BuildOptions(opts...)
	o.Logger = o.Logger.With(zap.String("store", "auth"))
	return &Store{
		auth: a,
		opts: o,
		snap: generic.NewSnapshotWriter(generic.KeyAuth, o),
	}
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// CurrentUser returns the signed-in user.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Store) Subscribe(fn func(State)) generic.Unsubscriber {
	return s.subs.Subscribe(fn)
}

// =============================================================================
// ACTIONS
// =============================================================================

// Login verifies credentials. On failure State.Error is set, the session
// is left as it was, and false is returned.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	seq := s.begin()

	start := time.Now()
	sess, err := s.auth.Login(ctx, email, password)
	if err == nil {
		err = sess.User.validate()
	}

	s.mu.Lock()
	s.inflight--
	stale := seq != s.seq
	outcome := generic.OutcomeSuccess
	switch {
	case stale:
		outcome = generic.OutcomeStale
	case err != nil:
		outcome = generic.OutcomeError
		s.err = generic.ErrorMessage(err, "login failed")
	default:
		u := sess.User
		s.user = &u
	}
	after := s.commitLocked(!stale && err == nil)
	s.mu.Unlock()
	after()

	s.opts.Metrics.ObserveRequest("auth", "login", outcome, time.Since(start))
	if outcome != generic.OutcomeSuccess {
		s.opts.Logger.Info("login rejected", zap.String("email", email), zap.String("outcome", outcome), zap.Error(err))
		return false
	}
	s.writeSession(seq, sess)
	s.opts.Logger.Info("login", zap.String("email", email), zap.Stringer("role", sess.User.Role))
	return true
}

// Logout ends the session and clears the side channel. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	s.seq++
	s.user = nil
	s.err = ""
	after := s.commitLocked(true)
	s.mu.Unlock()
	after()

	s.clearSession()
}

// CheckAuth rebuilds the session from the stored token. It never fails:
// any problem resolves to an anonymous session. A Login or Logout that
// starts while the check is running supersedes it.
func (s *Store) CheckAuth(ctx context.Context) {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()

	token, ok := s.readToken(ctx)
	if !ok {
		s.mu.Lock()
		if seq != s.seq {
			s.mu.Unlock()
			return
		}
		s.user = nil
		after := s.commitLocked(true)
		s.mu.Unlock()
		after()
		return
	}

	s.mu.Lock()
	s.inflight++
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()

	start := time.Now()
	user, err := s.auth.Resolve(ctx, token)
	if err == nil {
		err = user.validate()
	}

	s.mu.Lock()
	s.inflight--
	stale := seq != s.seq
	outcome := generic.OutcomeSuccess
	switch {
	case stale:
		outcome = generic.OutcomeStale
	case err != nil:
		outcome = generic.OutcomeError
		s.user = nil
	default:
		s.user = &user
	}
	after = s.commitLocked(!stale)
	s.mu.Unlock()
	after()

	s.opts.Metrics.ObserveRequest("auth", "check", outcome, time.Since(start))
	if err != nil && !stale {
		s.opts.Logger.Info("session check failed", zap.Error(err))
		if errors.Is(err, generic.ErrSessionNotFound) {
			s.clearSession()
		}
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Hydrate restores the auth-storage snapshot. CheckAuth should follow to
// confirm the restored user against the token.
func (s *Store) Hydrate(ctx context.Context) error {
	var snap Snapshot
	ok, err := s.snap.Read(ctx, &snap)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	s.user = nil
	if snap.IsAuthenticated && snap.User != nil && snap.User.validate() == nil {
		u := *snap.User
		s.user = &u
	}
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()
	return nil
}

func (s *Store) writeSession(seq uint64, sess Session) {
	p := s.opts.Persister
	if p == nil {
		return
	}
	s.sideMu.Lock()
	defer s.sideMu.Unlock()

	s.mu.Lock()
	current := s.seq
	s.mu.Unlock()
	if current != seq {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	user, err := json.Marshal(sess.User)
	if err == nil {
		err = p.Save(ctx, generic.KeySessionUser, user)
	}
	if err == nil {
		err = p.Save(ctx, generic.KeySessionToken, []byte(sess.Token))
	}
	if err != nil {
		s.opts.Logger.Warn("session write failed", zap.Error(err))
		s.opts.Metrics.ObservePersistError(generic.KeySessionToken)
	}
}

func (s *Store) clearSession() {
	p := s.opts.Persister
	if p == nil {
		return
	}
	s.sideMu.Lock()
	defer s.sideMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	for _, key := range []string{generic.KeySessionToken, generic.KeySessionUser} {
		if err := p.Delete(ctx, key); err != nil {
			s.opts.Logger.Warn("session clear failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Store) readToken(ctx context.Context) (string, bool) {
	p := s.opts.Persister
	if p == nil {
		return "", false
	}
	b, err := p.Load(ctx, generic.KeySessionToken)
	if err != nil {
		if !errors.Is(err, generic.ErrSnapshotNotFound) {
			s.opts.Logger.Warn("session token read failed", zap.Error(err))
		}
		return "", false
	}
	return string(b), len(b) > 0
}

// =============================================================================
// INTERNALS
// =============================================================================

// begin starts a credential exchange and returns its sequence number.
// Only Login and Logout advance the sequence.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.err = ""
	after := s.commitLocked(false)
	s.mu.Unlock()
	after()
	return seq
}

func (s *Store) stateLocked() State {
	st := State{
		IsAuthenticated: s.user != nil,
		Loading:         s.inflight > 0,
		Error:           s.err,
		Version:         s.version,
	}
	switch {
	case s.user != nil:
		u := *s.user
		st.User = &u
		st.Phase = Authenticated
	case s.inflight > 0:
		st.Phase = Authenticating
	default:
		st.Phase = Anonymous
	}
	return st
}

func (s *Store) commitLocked(persist bool) func() {
	s.version++
	version := s.version
	st := s.stateLocked()
	return func() {
		if persist {
			s.snap.Write(version, Snapshot{User: st.User, IsAuthenticated: st.IsAuthenticated})
		}
		s.subs.Publish(version, st)
	}
}
