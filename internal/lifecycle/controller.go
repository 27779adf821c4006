// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle drives messages from submission to reply or failure.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/remote"
	"github.com/jeranaias/sirsi/internal/storage"
)

// DefaultSendTimeout bounds a single remote send.
const DefaultSendTimeout = 60 * time.Second

// =============================================================================
// STATE
// =============================================================================

// State is what the presentation layer renders.
type State struct {
	Conversation  model.Conversation
	AwaitingReply bool
}

// StateListener receives the state after every change.
type StateListener func(State)

// Options configures a Controller.
type Options struct {
	// SendTimeout bounds each send. 0 uses DefaultSendTimeout.
	SendTimeout time.Duration

	Logger *zap.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the submit and retry flows. At most one send or clear is
// outstanding at a time.
type Controller struct {
	store       *storage.ConversationStore
	client      remote.Client
	logger      *zap.Logger
	sendTimeout time.Duration

	awaiting atomic.Bool

	// mu guards session.
	mu      sync.Mutex
	session remote.Session

	listenMu  sync.Mutex
	listeners map[int]StateListener
	nextID    int

	unsubscribe func()
}

// New creates a controller over store and client. Call Load before use.
func New(store *storage.ConversationStore, client remote.Client, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	c := &Controller{
		store:       store,
		client:      client,
		logger:      logger.With(zap.String("component", "lifecycle")),
		sendTimeout: timeout,
		listeners:   make(map[int]StateListener),
	}
	c.unsubscribe = store.Subscribe(func(conv model.Conversation) {
		c.notify(State{Conversation: conv, AwaitingReply: c.awaiting.Load()})
	})
	return c
}

// Close detaches the controller from the store.
func (c *Controller) Close() {
	c.unsubscribe()
}

// Load restores the persisted conversation and starts a fresh session
// seeded from it. A session that cannot be created now is created on the
// next send instead.
func (c *Controller) Load(ctx context.Context) State {
	conv := c.store.Load(ctx)

	c.mu.Lock()
	c.session = nil
	session, err := c.client.CreateSession(ctx, conv.History())
	if err != nil {
		c.logger.Warn("session not created, will retry on send", zap.Error(err))
	} else {
		c.session = session
	}
	c.mu.Unlock()

	state := State{Conversation: conv, AwaitingReply: c.awaiting.Load()}
	c.notify(state)
	return state
}

// State returns the current conversation and awaiting flag.
func (c *Controller) State() State {
	return State{
		Conversation:  c.store.Current(),
		AwaitingReply: c.awaiting.Load(),
	}
}

// AwaitingReply reports whether a send is outstanding.
func (c *Controller) AwaitingReply() bool {
	return c.awaiting.Load()
}

// =============================================================================
// SUBMIT / RETRY
// =============================================================================

// Submit appends a user message with text and sends it. It blocks until the
// reply or failure has been recorded. Empty text and a submit while a reply
// is pending are rejected with a *ValidationError. Remote failures are not
// returned; they become a failed message followed by the failure notice.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return reject("submit", ErrEmptyText)
	}
	if !c.awaiting.CompareAndSwap(false, true) {
		return reject("submit", ErrAwaitingReply)
	}

	msg := model.NewUserMessage(text)
	c.logger.Debug("submit", zap.String("id", msg.ID), zap.String("preview", msg.Preview(40)))

	c.send(ctx, msg, func(conv model.Conversation) model.Conversation {
		return conv.Append(msg)
	})
	return nil
}

// Retry re-sends the failed message with the given id under the same id.
// The error flag is cleared first, and the message after it is removed if
// it is the failure notice.
func (c *Controller) Retry(ctx context.Context, id string) error {
	if !c.retryable(id) {
		return reject("retry", ErrNotRetryable)
	}
	if !c.awaiting.CompareAndSwap(false, true) {
		return reject("retry", ErrAwaitingReply)
	}

	// The conversation may have changed between the check and the gate.
	msg, ok := c.store.Current().Find(id)
	if !ok || !msg.Error {
		c.release()
		return reject("retry", ErrNotRetryable)
	}
	c.logger.Debug("retry", zap.String("id", id))

	msg.Error = false
	c.send(ctx, msg, func(conv model.Conversation) model.Conversation {
		return conv.UpdateByID(id, model.SetError(false)).DropNoticeAfter(id)
	})
	return nil
}

// RetryLast retries the most recent failed message.
func (c *Controller) RetryLast(ctx context.Context) error {
	msg, ok := c.store.Current().LastFailed()
	if !ok {
		return reject("retry", ErrNotRetryable)
	}
	return c.Retry(ctx, msg.ID)
}

// Clear resets the conversation to the greeting and drops the session.
// Submits and retries are rejected until it returns.
func (c *Controller) Clear(ctx context.Context) error {
	if !c.awaiting.CompareAndSwap(false, true) {
		return reject("clear", ErrAwaitingReply)
	}
	defer c.release()

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return c.store.Clear(ctx)
}

func (c *Controller) retryable(id string) bool {
	msg, ok := c.store.Current().Find(id)
	return ok && msg.Role == model.RoleUser && msg.Error
}

// =============================================================================
// SEND PROTOCOL
// =============================================================================

// send applies prepare to the conversation, delivers msg and records the
// outcome. The caller has already set the awaiting flag; send always clears
// it.
func (c *Controller) send(ctx context.Context, msg model.Message, prepare func(model.Conversation) model.Conversation) {
	defer c.release()

	persist := context.WithoutCancel(ctx)
	start := time.Now()
	c.store.Update(persist, prepare)

	reply, err := c.exchange(ctx, msg)
	if err != nil {
		c.fail(persist, msg.ID, err)
		return
	}

	c.logger.Info("reply received",
		zap.String("id", msg.ID),
		zap.Duration("elapsed", time.Since(start)))

	c.store.Update(persist, func(conv model.Conversation) model.Conversation {
		if conv.Index(msg.ID) < 0 {
			return conv
		}
		return conv.Append(model.NewBotMessage(reply))
	})
}

// exchange sends msg on the current session, creating one if needed. A
// panicking client is reported as an error.
func (c *Controller) exchange(ctx context.Context, msg model.Message) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("remote client panicked", zap.String("id", msg.ID), zap.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	session, err := c.ensureSession(ctx, msg.ID)
	if err != nil {
		return "", err
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	return session.Send(sendCtx, msg.Text)
}

// fail marks the message errored and appends the failure notice.
func (c *Controller) fail(ctx context.Context, id string, err error) {
	c.logger.Warn("send failed",
		zap.String("id", id),
		zap.Bool("remote", remote.IsRemoteError(err)),
		zap.Error(err))

	c.store.Update(ctx, func(conv model.Conversation) model.Conversation {
		if conv.Index(id) < 0 {
			return conv
		}
		return conv.UpdateByID(id, model.SetError(true)).Append(model.NewFailureNotice())
	})
}

// ensureSession returns the current session, creating one seeded with the
// conversation minus the in-flight message when there is none.
func (c *Controller) ensureSession(ctx context.Context, inFlightID string) (remote.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}
	session, err := c.client.CreateSession(ctx, c.store.Current().History(inFlightID))
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// release clears the awaiting flag and publishes the new state.
func (c *Controller) release() {
	c.awaiting.Store(false)
	c.notify(c.State())
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (c *Controller) Subscribe(fn StateListener) (cancel func()) {
	c.listenMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenMu.Lock()
			delete(c.listeners, id)
			c.listenMu.Unlock()
		})
	}
}

func (c *Controller) notify(state State) {
	c.listenMu.Lock()
	listeners := make([]StateListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.listenMu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
