// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/sirsi/internal/lifecycle"
	"github.com/jeranaias/sirsi/internal/model"
	"github.com/jeranaias/sirsi/internal/remote"
	"github.com/jeranaias/sirsi/internal/storage"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type stubClient struct {
	reply string
	err   error
}

func (c *stubClient) CreateSession(context.Context, []model.Message) (remote.Session, error) {
	return c, nil
}

func (c *stubClient) Send(context.Context, string) (string, error) {
	if c.err != nil {
		return "", &remote.Error{Op: "send", Err: c.err}
	}
	return c.reply, nil
}

func newTestModel(t *testing.T, client *stubClient) *Model {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewConversationStore(storage.NewMemoryKV(), storage.DefaultKey, logger)
	ctrl := lifecycle.New(store, client, lifecycle.Options{Logger: logger})
	t.Cleanup(ctrl.Close)
	ctrl.Load(context.Background())

	m := New(ctrl, styles.NewTheme("dark"), Options{})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 60})
	return m
}

// submit types text, presses enter and feeds the result back in.
func submit(t *testing.T, m *Model, text string) {
	t.Helper()
	m.input.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m.Update(cmd())
}

// =============================================================================
// TESTS
// =============================================================================

func TestView_BeforeResize(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := storage.NewConversationStore(storage.NewMemoryKV(), storage.DefaultKey, logger)
	ctrl := lifecycle.New(store, &stubClient{}, lifecycle.Options{Logger: logger})
	defer ctrl.Close()

	m := New(ctrl, nil, Options{})
	defer m.Close()
	assert.Equal(t, loadingLabel, m.View())
}

func TestView_HeaderAndGreeting(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "hi"})

	view := m.View()
	assert.Contains(t, view, headerTitle)
	assert.Contains(t, view, onlineLabel)
	assert.Contains(t, view, "Hello! I'm Sirsi")
	assert.NotContains(t, view, typingLabel)
}

func TestSubmit_RendersReply(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "Your order ships tomorrow."})

	submit(t, m, "Where is my order?")

	view := m.View()
	assert.Contains(t, view, "Where is my order?")
	assert.Contains(t, view, "Your order ships tomorrow.")
	assert.NotContains(t, view, failedLabel)
	assert.Empty(t, m.input.Value(), "input is reset after submit")
}

func TestSubmit_RendersFailure(t *testing.T) {
	m := newTestModel(t, &stubClient{err: errors.New("offline")})

	submit(t, m, "hello?")

	view := m.View()
	assert.Contains(t, view, failedLabel)
	assert.Contains(t, view, retryLabel)
	assert.Contains(t, view, model.FailureNotice)
	assert.NotContains(t, view, "offline", "the underlying error is never shown")
}

func TestRetry_ReplacesFailure(t *testing.T) {
	client := &stubClient{err: errors.New("offline")}
	m := newTestModel(t, client)
	submit(t, m, "hello?")
	require.Contains(t, m.View(), failedLabel)

	client.err = nil
	client.reply = "Back online."
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m.Update(cmd())

	view := m.View()
	assert.NotContains(t, view, failedLabel)
	assert.NotContains(t, view, model.FailureNotice)
	assert.Contains(t, view, "Back online.")
}

func TestRetry_SelectedFailure(t *testing.T) {
	client := &stubClient{err: errors.New("offline")}
	m := newTestModel(t, client)
	submit(t, m, "first question")
	submit(t, m, "second question")
	require.Equal(t, 2, len(m.failedIDs()))

	ids := m.failedIDs()
	assert.Equal(t, ids[1], m.retryTarget(), "the most recent failure is selected by default")
	assert.Contains(t, m.View(), selectLabel)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ids[0], m.retryTarget(), "selection wraps to the first failure")
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, ids[1], m.retryTarget())
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, ids[0], m.retryTarget())

	client.err = nil
	client.reply = "Answer to the first."
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	m.Update(cmd())

	first, ok := m.state.Conversation.Find(ids[0])
	require.True(t, ok)
	assert.False(t, first.Error)
	second, ok := m.state.Conversation.Find(ids[1])
	require.True(t, ok)
	assert.True(t, second.Error, "only the selected message is retried")

	assert.Equal(t, ids[1], m.retryTarget(), "selection falls back to the remaining failure")
	assert.Contains(t, m.View(), "Answer to the first.")
}

func TestRetry_NothingFailed(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
}

func TestSubmit_EmptyIsIgnored(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})

	m.input.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, m.state.Conversation, 1)
}

func TestTypingIndicator(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})

	conv := model.NewConversation().Append(model.NewUserMessage("pending question"))
	m.Update(StateMsg{State: lifecycle.State{Conversation: conv, AwaitingReply: true}})

	view := m.View()
	assert.Contains(t, view, typingLabel)
	assert.Contains(t, view, "pending question")

	// Enter while awaiting does nothing.
	m.input.SetValue("another")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "another", m.input.Value())
}

func TestClear_ResetsToGreeting(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})
	submit(t, m, "first")
	require.Len(t, m.state.Conversation, 3)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.True(t, m.state.Conversation.IsDefault())
	assert.NotContains(t, m.View(), "first")
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestPublish_NeverBlocks(t *testing.T) {
	m := newTestModel(t, &stubClient{reply: "ok"})
	for i := 0; i < stateBuffer*2; i++ {
		m.publish(lifecycle.State{})
	}
	assert.Len(t, m.states, stateBuffer)
}
