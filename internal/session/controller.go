// Package session owns the client-side record of who is logged in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/credstore"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

var (
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrInvalidLogin     = errors.New("session: login requires a user and a token")
	ErrUserMismatch     = errors.New("session: user does not belong to this session")
	// ErrStale is returned when a call finished after the session it was issued in ended.
	ErrStale          = errors.New("session: result belongs to an ended session")
	ErrAlreadyStarted = errors.New("session: already started")
	ErrClosed         = errors.New("session: closed")
)

// UserFetcher loads the user a token belongs to. authclient.Client.GetCurrentUser satisfies it.
type UserFetcher func(ctx context.Context, token string) (*domain.User, error)

// Options configures a Controller.
type Options struct {
	Policy StartupPolicy
	// Fetcher is required by the Revalidate policy.
	Fetcher UserFetcher
	Logger  *zap.Logger
}

// Controller is the single source of truth for the session. All transitions are
// serialised; listeners run synchronously, in transition order, and must not call
// transition methods.
type Controller struct {
	mu     sync.Mutex
	store  credstore.Store
	opts   Options
	logger *zap.Logger

	state  State
	user   *domain.User
	token  string
	epoch  uint64
	closed bool

	// calls holds the cancel func of every bound call; all are cancelled
	// before the epoch advances.
	calls    map[uint64]context.CancelFunc
	nextCall uint64

	snapshot  atomic.Pointer[Snapshot]
	listeners map[int]func(Snapshot)
	nextID    int

	ready     chan struct{}
	readyOnce sync.Once
	started   bool
}

// New returns a controller in the Initializing state. Call Start to rehydrate.
func New(store credstore.Store, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		store:     store,
		opts:      opts,
		logger:    logger,
		state:     Initializing,
		calls:     make(map[uint64]context.CancelFunc),
		listeners: make(map[int]func(Snapshot)),
		ready:     make(chan struct{}),
	}
	c.snapshot.Store(&Snapshot{State: Initializing})
	return c
}

// Snapshot returns the current state. It never blocks on a transition.
func (c *Controller) Snapshot() Snapshot {
	return c.snapshot.Load().clone()
}

// Ready is closed once the session has left Initializing.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Subscribe registers fn for every subsequent transition.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Start rehydrates the session from the store.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true

	entry, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("credential store unreadable; starting anonymous", zap.Error(err))
		c.setAnonymousLocked()
		c.mu.Unlock()
		return fmt.Errorf("load credentials: %w", err)
	}

	user, ok := c.restorable(entry)
	if !ok {
		var clearErr error
		if !entry.IsEmpty() {
			c.logger.Warn("discarding incomplete or corrupt stored session")
			clearErr = c.store.Clear(ctx)
		}
		c.setAnonymousLocked()
		c.mu.Unlock()
		if clearErr != nil {
			return fmt.Errorf("clear corrupt credentials: %w", clearErr)
		}
		return nil
	}

	if c.opts.Policy != Revalidate || c.opts.Fetcher == nil {
		c.setAuthenticatedLocked(user, entry.Token)
		c.mu.Unlock()
		return nil
	}

	epoch, callCtx, release := c.bindLocked(ctx)
	c.mu.Unlock()
	defer release()

	fresh, fetchErr := c.opts.Fetcher(callCtx, entry.Token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || c.state != Initializing || c.closed {
		c.markReady()
		return nil
	}
	switch {
	case fetchErr == nil && fresh.Valid() && fresh.ID == user.ID:
		if raw, err := json.Marshal(fresh); err == nil {
			if err := c.store.Save(ctx, credstore.Entry{Token: entry.Token, User: raw}); err != nil {
				c.logger.Warn("failed to persist revalidated user", zap.Error(err))
			}
		}
		c.setAuthenticatedLocked(fresh, entry.Token)
		return nil
	case fetchErr == nil || authclient.IsKind(fetchErr, authclient.KindUnauthenticated):
		c.logger.Info("stored session rejected by server")
		c.setAnonymousLocked()
		if err := c.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear rejected credentials: %w", err)
		}
		return nil
	default:
		c.logger.Warn("could not revalidate stored session; trusting cache", zap.Error(fetchErr))
		c.setAuthenticatedLocked(user, entry.Token)
		return nil
	}
}

// Login records a successful login or signup. The store is written first; on a
// store failure the session is unchanged.
func (c *Controller) Login(ctx context.Context, user *domain.User, token string) error {
	if !user.Valid() || token == "" {
		return ErrInvalidLogin
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.store.Save(ctx, credstore.Entry{Token: token, User: raw}); err != nil {
		c.logger.Error("failed to persist session", zap.Error(err))
		return fmt.Errorf("save credentials: %w", err)
	}
	c.advanceEpochLocked()
	c.setAuthenticatedLocked(user, token)
	return nil
}

// Logout ends the session from any state. Memory is cleared even if the store
// cannot be, in which case the store error is returned.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logoutLocked(ctx)
}

// UpdateUser replaces the cached user after a profile change. The token and epoch
// are unchanged.
func (c *Controller) UpdateUser(ctx context.Context, user *domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateUserLocked(ctx, user)
}

// Refresh fetches the current user under the active epoch and applies the result
// only if that epoch is still current. A rejected token ends the session.
func (c *Controller) Refresh(ctx context.Context, fetch UserFetcher) (*domain.User, error) {
	var user *domain.User
	err := c.Do(ctx, func(callCtx context.Context, token string) error {
		u, err := fetch(callCtx, token)
		user = u
		return err
	}, func(applyCtx context.Context) error {
		return c.updateUserLocked(applyCtx, user)
	})
	if err != nil {
		return nil, err
	}
	return user.Clone(), nil
}

// Do runs fn with the session token under a context that is cancelled when the
// session ends. apply, if given, runs under the transition lock only when fn
// succeeded and the epoch is unchanged.
func (c *Controller) Do(ctx context.Context, fn func(ctx context.Context, token string) error, apply ...func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Authenticated {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	token := c.token
	epoch, callCtx, release := c.bindLocked(ctx)
	c.mu.Unlock()
	defer release()

	err := fn(callCtx, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.logger.Debug("discarding result from ended session", zap.Uint64("epoch", epoch))
		return ErrStale
	}
	if err != nil {
		c.endIfRejectedLocked(ctx, err)
		return err
	}
	for _, fn := range apply {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// endIfRejectedLocked logs out when err reports that the server rejected the
// current token. Callers have already checked the epoch.
func (c *Controller) endIfRejectedLocked(ctx context.Context, err error) {
	if !authclient.IsKind(err, authclient.KindUnauthenticated) || c.state != Authenticated {
		return
	}
	c.logger.Info("token rejected by server; logging out")
	if clearErr := c.logoutLocked(ctx); clearErr != nil {
		c.logger.Warn("failed to clear credentials", zap.Error(clearErr))
	}
}

// Close cancels in-flight calls and detaches listeners. The store is left as is.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelCallsLocked()
	c.listeners = map[int]func(Snapshot){}
	c.markReady()
}

func (c *Controller) restorable(entry credstore.Entry) (*domain.User, bool) {
	if entry.Token == "" || len(entry.User) == 0 {
		return nil, false
	}
	var user domain.User
	if err := json.Unmarshal(entry.User, &user); err != nil {
		c.logger.Warn("stored user unparsable", zap.Error(err))
		return nil, false
	}
	if !user.Valid() {
		c.logger.Warn("stored user lacks an id, role or status")
		return nil, false
	}
	return &user, true
}

func (c *Controller) logoutLocked(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	c.advanceEpochLocked()
	c.setAnonymousLocked()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("failed to clear credential store", zap.Error(err))
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (c *Controller) updateUserLocked(ctx context.Context, user *domain.User) error {
	if c.closed {
		return ErrClosed
	}
	if c.state != Authenticated {
		return ErrNotAuthenticated
	}
	if !user.Valid() || user.ID != c.user.ID {
		return ErrUserMismatch
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := c.store.Save(ctx, credstore.Entry{Token: c.token, User: raw}); err != nil {
		c.logger.Error("failed to persist updated user", zap.Error(err))
		return fmt.Errorf("save credentials: %w", err)
	}
	c.setAuthenticatedLocked(user, c.token)
	return nil
}

// bindLocked derives a call context that ends with either ctx or the current
// epoch. release must be called without holding c.mu.
func (c *Controller) bindLocked(ctx context.Context) (uint64, context.Context, func()) {
	callCtx, cancel := context.WithCancel(ctx)
	id := c.nextCall
	c.nextCall++
	c.calls[id] = cancel
	return c.epoch, callCtx, func() {
		c.mu.Lock()
		delete(c.calls, id)
		c.mu.Unlock()
		cancel()
	}
}

// advanceEpochLocked cancels every bound call before it returns.
func (c *Controller) advanceEpochLocked() {
	c.epoch++
	c.cancelCallsLocked()
}

func (c *Controller) cancelCallsLocked() {
	for id, cancel := range c.calls {
		cancel()
		delete(c.calls, id)
	}
}

func (c *Controller) setAuthenticatedLocked(user *domain.User, token string) {
	c.state = Authenticated
	c.user = user.Clone()
	c.token = token
	c.publishLocked()
}

func (c *Controller) setAnonymousLocked() {
	c.state = Anonymous
	c.user = nil
	c.token = ""
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	snap := Snapshot{State: c.state, User: c.user.Clone(), Token: c.token, Epoch: c.epoch}
	c.snapshot.Store(&snap)
	c.logger.Debug("session transition", zap.Stringer("state", snap.State), zap.Uint64("epoch", snap.Epoch))
	if snap.State != Initializing {
		c.markReady()
	}
	for _, fn := range c.listeners {
		fn(snap.clone())
	}
}

func (c *Controller) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}
