package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/boxoffice/boxoffice/internal/model"
)

// Backend is the account API a Client drives. *Authenticator satisfies it.
type Backend interface {
	Register(ctx context.Context, email, password, name string) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
}

// StateListener receives the current principal, nil when signed out.
type StateListener func(p *model.Principal)

// Client holds one signed-in session and tells subscribers whenever it
// changes. Listeners run one at a time, in subscription order, and must
// not call back into the Client synchronously.
type Client struct {
	backend Backend

	mu        sync.Mutex
	session   *Session
	listeners map[int]StateListener
	order     []int
	nextID    int

	dispatch sync.Mutex
}

func NewClient(b Backend) *Client {
	return &Client{backend: b, listeners: map[int]StateListener{}}
}

// OnStateChanged registers fn and calls it right away with the current
// state. The returned func unsubscribes.
func (c *Client) OnStateChanged(fn func(p *model.Principal)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	c.dispatch.Lock()
	fn(c.Current())
	c.dispatch.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i:i], c.order[i+1:]...)
					break
				}
			}
			c.mu.Unlock()
		})
	}
}

// Current returns a copy of the signed-in principal, or nil.
func (c *Client) Current() *model.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	p := c.session.Principal
	return &p
}

// AccessToken returns the bearer token of the current session, or "".
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (model.Principal, error) {
	s, err := c.backend.Register(ctx, email, password, name)
	if err != nil {
		return model.Principal{}, err
	}
	c.setSession(&s)
	return s.Principal, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (model.Principal, error) {
	s, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return model.Principal{}, err
	}
	c.setSession(&s)
	return s.Principal, nil
}

// SignOut revokes the session's refresh token. On failure the session is
// kept and the error returned.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	if err := c.backend.Logout(ctx, s.RefreshToken); err != nil {
		return err
	}
	c.setSession(nil)
	return nil
}

// RefreshSession rotates the refresh token and notifies listeners, the way
// a token refresh re-fires the state callback. A rejected refresh token
// ends the session.
func (c *Client) RefreshSession(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return ErrInvalidToken
	}
	ns, err := c.backend.Refresh(ctx, s.RefreshToken)
	if errors.Is(err, ErrInvalidToken) {
		c.setSession(nil)
		return err
	}
	if err != nil {
		return err
	}
	c.setSession(&ns)
	return nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.backend.RequestPasswordReset(ctx, email)
}

func (c *Client) setSession(s *Session) {
	c.dispatch.Lock()
	defer c.dispatch.Unlock()

	c.mu.Lock()
	c.session = s
	fns := make([]StateListener, 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.listeners[id])
	}
	var p *model.Principal
	if s != nil {
		cp := s.Principal
		p = &cp
	}
	c.mu.Unlock()

	for _, fn := range fns {
		if p == nil {
			fn(nil)
			continue
		}
		cp := *p
		fn(&cp)
	}
}
