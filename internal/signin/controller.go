// Package signin drives the sign-in form: it validates input, calls the identity provider,
// stores the issued token and decides where the browser goes next.
package signin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/signin/internal/form"
	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/observability"
	"finitefield.org/signin/internal/tokenstore"
)

const (
	defaultHomePath = "/home"
	tracerName      = "finitefield.org/signin/internal/signin"
)

// ErrNoToken is recorded when the provider reports success without an access token.
var ErrNoToken = errors.New("signin: provider returned no access token")

// Phase is the position of the form in its submit cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// State is everything the form renders. The password is never part of it.
type State struct {
	Phase      Phase
	Email      string
	Errors     form.Validation
	AuthError  bool
	Submitting bool
	// Submitted is set after the first submit; from then on every input is re-validated.
	Submitted bool
}

func (s State) clone() State {
	s.Errors = s.Errors.Clone()
	return s
}

// Navigator performs the route change after a successful sign-in.
type Navigator interface {
	GoTo(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// GoTo implements Navigator.
func (f NavigatorFunc) GoTo(path string) { f(path) }

// Options wires a Controller to its collaborators.
type Options struct {
	Authenticator identity.Authenticator
	Store         tokenstore.Store
	Navigator     Navigator
	HomePath      string
	Constraints   []form.Constraint
	// Submitted starts the form as already submitted once, so Input validates immediately.
	Submitted bool
	// Logger defaults to the logger carried by the Submit context.
	Logger *zap.Logger
	Tracer trace.Tracer
	// OnChange receives a snapshot after every transition. It runs outside the controller lock.
	OnChange func(State)
}

// Controller owns the form state and serialises its transitions.
type Controller struct {
	auth        identity.Authenticator
	store       tokenstore.Store
	nav         Navigator
	homePath    string
	constraints []form.Constraint
	logger      *zap.Logger
	tracer      trace.Tracer
	onChange    func(State)

	// writeMu orders token writes so a superseded attempt cannot land after the latest one.
	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	attempt uint64
	closed  bool
}

// New validates opts and returns an idle controller.
func New(opts Options) (*Controller, error) {
	if opts.Authenticator == nil {
		return nil, errors.New("signin: authenticator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("signin: token store is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("signin: navigator is required")
	}
	home := strings.TrimSpace(opts.HomePath)
	if home == "" {
		home = defaultHomePath
	}
	constraints := opts.Constraints
	if len(constraints) == 0 {
		constraints = form.DefaultConstraints
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Controller{
		auth:        opts.Authenticator,
		store:       opts.Store,
		nav:         opts.Navigator,
		homePath:    home,
		constraints: constraints,
		logger:      opts.Logger,
		tracer:      tracer,
		onChange:    opts.OnChange,
		state:       State{Phase: PhaseIdle, Submitted: opts.Submitted},
	}, nil
}

// State returns a snapshot of the current form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Input records a change of the field values. Once the form has been submitted the values are
// re-validated on every change. A settled form returns to idle.
func (c *Controller) Input(creds form.Credentials) State {
	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.state.clone()
	}
	c.state.Email = creds.Email
	if c.state.Submitted {
		c.state.Errors = form.ValidateWith(c.constraints, creds)
	}
	if c.state.Phase == PhaseSucceeded || c.state.Phase == PhaseFailed {
		c.state.Phase = PhaseIdle
	}
	snap := c.state.clone()
	c.mu.Unlock()

	c.notify(snap)
	return snap
}

// Submit validates creds and, when they are valid, signs in with the identity provider.
// It blocks until the attempt settles and returns the resulting state. Submitting while an
// earlier attempt is in flight is allowed; only the latest attempt applies its outcome.
func (c *Controller) Submit(ctx context.Context, creds form.Credentials) State {
	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.state.clone()
	}
	c.state.Phase = PhaseValidating
	c.state.Email = creds.Email
	c.state.Submitted = true
	c.state.Errors = form.ValidateWith(c.constraints, creds)
	validating := c.state.clone()

	if !validating.Errors.Valid() {
		c.state.Phase = PhaseIdle
		if c.state.Submitting {
			// an earlier attempt is still in flight
			c.state.Phase = PhaseSubmitting
		}
		idle := c.state.clone()
		c.mu.Unlock()

		c.notify(validating)
		c.notify(idle)
		return idle
	}

	c.attempt++
	seq := c.attempt
	c.state.Phase = PhaseSubmitting
	c.state.Submitting = true
	c.state.AuthError = false
	submitting := c.state.clone()
	c.mu.Unlock()

	c.notify(validating)
	c.notify(submitting)

	return c.dispatch(ctx, seq, creds)
}

// Close marks the controller dead. Attempts still in flight finish their provider call but
// neither store a token, touch the state nor navigate.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Controller) dispatch(ctx context.Context, seq uint64, creds form.Credentials) State {
	attemptID := uuid.NewString()
	logger := c.logger
	if logger == nil {
		logger = observability.FromContext(ctx)
	}
	logger = logger.With(
		zap.String("attempt_id", attemptID),
		zap.String("email", observability.MaskEmail(creds.Email)),
	)

	cred, err := c.authenticate(ctx, attemptID, creds)
	if err == nil && strings.TrimSpace(cred.User.AccessToken) == "" {
		err = identity.NewError(identity.ReasonProviderUnavailable, ErrNoToken)
	}

	var (
		settled State
		applied bool
	)
	if err == nil {
		settled, applied, err = c.persistAndSettle(ctx, logger, seq, cred.User.AccessToken)
	} else {
		settled, applied = c.settle(seq, err)
	}
	if !applied {
		logger.Info("sign-in outcome discarded", zap.Bool("succeeded", err == nil))
		return settled
	}

	c.notify(settled)

	if err != nil {
		logger.Warn("sign-in failed",
			zap.String("reason", identity.ReasonOf(err)),
			zap.Error(err),
		)
		return settled
	}

	logger.Info("sign-in succeeded", zap.String("uid", cred.User.UID))
	c.nav.GoTo(c.homePath)
	return settled
}

// authenticate calls the provider inside a span. Panics are reported as errors.
func (c *Controller) authenticate(ctx context.Context, attemptID string, creds form.Credentials) (cred *identity.Credential, err error) {
	ctx, span := c.tracer.Start(ctx, "signin.authenticate",
		trace.WithAttributes(attribute.String("signin.attempt_id", attemptID)),
	)
	defer func() {
		if r := recover(); r != nil {
			cred = nil
			err = fmt.Errorf("signin: authenticator panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "authentication failed")
			if reason := identity.ReasonOf(err); reason != "" {
				span.SetAttributes(attribute.String("signin.failure_reason", reason))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	cred, err = c.auth.Authenticate(ctx, creds.Email, creds.Password)
	if err == nil && cred == nil {
		err = identity.NewError(identity.ReasonProviderUnavailable, ErrNoToken)
	}
	return cred, err
}

// settle applies the outcome of attempt seq unless a newer attempt or Close superseded it.
func (c *Controller) settle(seq uint64, err error) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.attempt {
		return c.state.clone(), false
	}
	c.state.Submitting = false
	if err != nil {
		c.state.Phase = PhaseFailed
		c.state.AuthError = true
	} else {
		c.state.Phase = PhaseSucceeded
		c.state.AuthError = false
	}
	return c.state.clone(), true
}

// persistAndSettle writes the token and settles attempt seq while holding writeMu. A write
// that loses to a newer attempt or to Close is rolled back to the previous value.
func (c *Controller) persistAndSettle(ctx context.Context, logger *zap.Logger, seq uint64, token string) (State, bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.current(seq) {
		return c.State(), false, nil
	}

	var previous string
	lookupErr := c.guard("token store", func() error {
		var err error
		previous, err = c.store.GetItem(ctx, tokenstore.AccessTokenKey)
		return err
	})

	err := c.guard("token store", func() error {
		if err := c.store.SetItem(ctx, tokenstore.AccessTokenKey, token); err != nil {
			return fmt.Errorf("store access token: %w", err)
		}
		return nil
	})

	settled, applied := c.settle(seq, err)
	if !applied && err == nil {
		c.rollback(ctx, logger, previous, lookupErr == nil)
	}
	return settled, applied, err
}

func (c *Controller) rollback(ctx context.Context, logger *zap.Logger, previous string, hadPrevious bool) {
	err := c.guard("token store", func() error {
		if hadPrevious {
			return c.store.SetItem(ctx, tokenstore.AccessTokenKey, previous)
		}
		return c.store.RemoveItem(ctx, tokenstore.AccessTokenKey)
	})
	if err != nil {
		logger.Error("discarded access token rollback failed", zap.Error(err))
	}
}

// guard runs fn and reports a panic as an error.
func (c *Controller) guard(what string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("signin: %s panic: %v", what, r)
		}
	}()
	return fn()
}

func (c *Controller) current(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && seq == c.attempt
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
