// File: internal/controller/controller.go

// Package controller implements the synchronous session protocol between
// the planning logic and the simulation engine. A pair of capacity-one
// channels forms a strict rendezvous: Step parks the outgoing action in one
// slot and blocks until the engine's resulting event arrives in the other.
// At most one action is ever in flight; violating that is a programming
// error and panics rather than being reported as a recoverable failure.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codealphago/ai2thor/api/schemas"
)

// ErrActionFailed wraps the engine's error message when a fail-fast step
// observes lastActionSuccess=false.
var ErrActionFailed = errors.New("engine action failed")

// CheckFunc is a pre-flight validity check run locally before an action is
// allowed to cross the channel. Returning false rejects the action without
// any engine traffic.
type CheckFunc func(schemas.Action) bool

// Option configures a Controller.
type Option func(*Controller)

// WithRateLimit throttles outgoing actions to the given rate. Zero or
// negative disables throttling.
func WithRateLimit(actionsPerSecond float64) Option {
	return func(c *Controller) {
		if actionsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(actionsPerSecond), 1)
		}
	}
}

// WithCheckAction installs the pre-flight check hook.
func WithCheckAction(check CheckFunc) Option {
	return func(c *Controller) { c.check = check }
}

// Controller owns the rendezvous channel pair and the single most recent
// event. The planning side calls Reset/Step/StepOrFail; the engine-facing
// transport calls NextAction/DeliverEvent from its own goroutine. The two
// sides never share any other state.
type Controller struct {
	log     *zap.Logger
	actions chan schemas.Action // planner -> engine, capacity 1
	events  chan *schemas.Event // engine -> planner, capacity 1

	// inFlight enforces the one-action-in-flight protocol invariant.
	inFlight atomic.Bool

	// lastEvent has a single writer (the handshake completion) and is only
	// read between handshakes, so the channel rendezvous is the only
	// synchronization it needs.
	lastEvent *schemas.Event

	limiter *rate.Limiter
	check   CheckFunc
}

// New creates a Controller with empty rendezvous slots.
func New(logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		log:     logger.Named("controller"),
		actions: make(chan schemas.Action, 1),
		events:  make(chan *schemas.Event, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AwaitLaunch blocks until the engine delivers its initial event after
// process start. No action is sent; the engine initiates this exchange.
func (c *Controller) AwaitLaunch(ctx context.Context) (*schemas.Event, error) {
	select {
	case ev := <-c.events:
		c.lastEvent = ev
		c.log.Info("Engine connected.", zap.String("scene", ev.Metadata.SceneName))
		return ev, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for engine launch: %w", ctx.Err())
	}
}

// Reset discards engine state and loads the named scene. The pre-flight
// check hook does not apply to resets.
func (c *Controller) Reset(ctx context.Context, sceneName string) (*schemas.Event, error) {
	return c.exchange(ctx, schemas.Reset{SceneName: sceneName})
}

// Step performs one synchronous action exchange. A failed action
// (lastActionSuccess=false) is returned as a normal event for the caller to
// inspect; only transport-level problems surface as errors. Calling Step
// while a previous action is still in flight panics.
func (c *Controller) Step(ctx context.Context, action schemas.Action) (*schemas.Event, error) {
	if c.check != nil && !c.check(action) {
		return c.rejectLocally(action)
	}
	return c.exchange(ctx, action)
}

// StepOrFail is Step with fail-fast semantics: an unsuccessful action is
// promoted to an error wrapping ErrActionFailed and the engine's message.
func (c *Controller) StepOrFail(ctx context.Context, action schemas.Action) (*schemas.Event, error) {
	ev, err := c.Step(ctx, action)
	if err != nil {
		return nil, err
	}
	if !ev.Metadata.LastActionSuccess {
		return ev, fmt.Errorf("%w: %s: %s", ErrActionFailed, action.ActionName(), ev.Metadata.ErrorMessage)
	}
	return ev, nil
}

// LastEvent returns the most recent event, or nil before the first
// exchange.
func (c *Controller) LastEvent() *schemas.Event {
	return c.lastEvent
}

// exchange runs one full rendezvous: park the action, block for the event.
func (c *Controller) exchange(ctx context.Context, action schemas.Action) (*schemas.Event, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		panic("controller: Step called while a previous action is still in flight")
	}
	defer c.inFlight.Store(false)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("action throttle: %w", err)
		}
	}

	c.log.Debug("Submitting action.", zap.String("action", action.ActionName()))

	// The slot is empty by the one-in-flight invariant, so this send only
	// blocks if the context is already cancelled.
	select {
	case c.actions <- action:
	case <-ctx.Done():
		return nil, fmt.Errorf("submitting %s: %w", action.ActionName(), ctx.Err())
	}

	select {
	case ev := <-c.events:
		c.lastEvent = ev
		if !ev.Metadata.LastActionSuccess {
			c.log.Debug("Action failed.",
				zap.String("action", action.ActionName()),
				zap.String("error", ev.Metadata.ErrorMessage))
		}
		return ev, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("awaiting event for %s: %w", action.ActionName(), ctx.Err())
	}
}

// rejectLocally short-circuits an action that failed the pre-flight check:
// it never crosses the channel, and the caller receives a deep copy of the
// previous metadata marked unsuccessful.
func (c *Controller) rejectLocally(action schemas.Action) (*schemas.Event, error) {
	if c.lastEvent == nil {
		return nil, fmt.Errorf("action %s rejected locally before any engine event", action.ActionName())
	}
	ev, err := c.lastEvent.Clone()
	if err != nil {
		return nil, fmt.Errorf("synthesizing rejection event: %w", err)
	}
	ev.Metadata.LastActionSuccess = false
	c.lastEvent = ev
	c.log.Debug("Action rejected by pre-flight check.", zap.String("action", action.ActionName()))
	return ev, nil
}

// NextAction blocks until the planning side submits an action. Called by
// the engine-facing transport goroutine.
func (c *Controller) NextAction(ctx context.Context) (schemas.Action, error) {
	select {
	case action := <-c.actions:
		return action, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeliverEvent hands an engine-produced event to the planning side,
// completing the rendezvous. Called by the transport goroutine.
func (c *Controller) DeliverEvent(ctx context.Context, ev *schemas.Event) error {
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
