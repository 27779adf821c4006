// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewID_UniqueAndOrdered(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 500; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		if prev != "" {
			assert.Greater(t, id, prev, "ids should sort in creation order")
		}
		prev = id
	}
}

func TestGreeting(t *testing.T) {
	g := Greeting()
	assert.Equal(t, GreetingID, g.ID)
	assert.Equal(t, RoleBot, g.Role)
	assert.False(t, g.Error)
	assert.True(t, g.IsGreeting())
	assert.Contains(t, g.Text, "Hello!")
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"user ok", Message{ID: "1", Role: RoleUser, Text: "hi"}, false},
		{"failed user ok", Message{ID: "1", Role: RoleUser, Text: "hi", Error: true}, false},
		{"bot ok", Message{ID: "2", Role: RoleBot, Text: "hey"}, false},
		{"empty id", Message{Role: RoleUser, Text: "hi"}, true},
		{"unknown role", Message{ID: "3", Role: "system", Text: "x"}, true},
		{"failed bot", Message{ID: "4", Role: RoleBot, Text: "x", Error: true}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := Message{Text: "héllo wörld, this is long"}
	assert.Equal(t, "héllo w...", msg.Preview(10))
	assert.Equal(t, msg.Text, msg.Preview(100))

	multi := Message{Text: "line one\nline two"}
	assert.Equal(t, "line one line two", multi.Preview(50))
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, AssistantName, RoleBot.DisplayName())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func sampleConversation() Conversation {
	return Conversation{
		Greeting(),
		{ID: "u1", Role: RoleUser, Text: "hi"},
		{ID: "b1", Role: RoleBot, Text: "hello back"},
		{ID: "u2", Role: RoleUser, Text: "order status?", Error: true},
		{ID: "n2", Role: RoleBot, Text: FailureNotice},
	}
}

func TestConversation_AppendDoesNotMutate(t *testing.T) {
	base := NewConversation()
	next := base.Append(Message{ID: "u1", Role: RoleUser, Text: "hi"})

	assert.Len(t, base, 1)
	assert.Len(t, next, 2)
	assert.Equal(t, "u1", next[1].ID)

	// Appending twice to the same base must not share a backing array.
	a := next.Append(Message{ID: "a", Role: RoleBot})
	b := next.Append(Message{ID: "b", Role: RoleBot})
	assert.Equal(t, "a", a[2].ID)
	assert.Equal(t, "b", b[2].ID)
}

func TestConversation_UpdateByID(t *testing.T) {
	conv := sampleConversation()

	updated := conv.UpdateByID("u2", SetError(false))
	assert.False(t, updated[3].Error)
	assert.True(t, conv[3].Error, "original must be untouched")

	text := "edited"
	updated = conv.UpdateByID("u1", Patch{Text: &text})
	assert.Equal(t, "edited", updated[1].Text)
	assert.Equal(t, "hi", conv[1].Text)
}

func TestConversation_UpdateByIDUnknownIsIdentity(t *testing.T) {
	conv := sampleConversation()
	updated := conv.UpdateByID("missing", SetError(true))
	assert.Same(t, &conv[0], &updated[0], "no-op update should return the same slice")
}

func TestConversation_RemoveFollowerOf(t *testing.T) {
	conv := sampleConversation()

	out := conv.RemoveFollowerOf("u2")
	require.Len(t, out, 4)
	assert.Equal(t, "u2", out[3].ID)
	assert.Len(t, conv, 5)

	out = conv.RemoveFollowerOf("u1")
	require.Len(t, out, 4)
	assert.Equal(t, []string{GreetingID, "u1", "u2", "n2"}, ids(out))

	// Last message has no follower.
	assert.Len(t, conv.RemoveFollowerOf("n2"), 5)
	assert.Len(t, conv.RemoveFollowerOf("missing"), 5)
}

func TestConversation_DropNoticeAfter(t *testing.T) {
	conv := sampleConversation()

	out := conv.DropNoticeAfter("u2")
	assert.Equal(t, []string{GreetingID, "u1", "b1", "u2"}, ids(out))
	assert.Len(t, conv, 5)

	// A real follower is never removed.
	assert.Len(t, conv.DropNoticeAfter("u1"), 5)
	assert.Len(t, conv.DropNoticeAfter("n2"), 5)
	assert.Len(t, conv.DropNoticeAfter("missing"), 5)

	noNotice := Conversation{
		Greeting(),
		{ID: "u1", Role: RoleUser, Text: "first", Error: true},
		{ID: "u2", Role: RoleUser, Text: "second"},
	}
	assert.Equal(t, []string{GreetingID, "u1", "u2"}, ids(noNotice.DropNoticeAfter("u1")))
}

func TestConversation_RetryPreparation(t *testing.T) {
	conv := sampleConversation()
	out := conv.UpdateByID("u2", SetError(false)).DropNoticeAfter("u2")

	want := Conversation{
		Greeting(),
		{ID: "u1", Role: RoleUser, Text: "hi"},
		{ID: "b1", Role: RoleBot, Text: "hello back"},
		{ID: "u2", Role: RoleUser, Text: "order status?"},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("retry preparation mismatch (-want +got):\n%s", diff)
	}
}

func TestConversation_LastFailed(t *testing.T) {
	conv := sampleConversation()
	msg, ok := conv.LastFailed()
	require.True(t, ok)
	assert.Equal(t, "u2", msg.ID)

	_, ok = NewConversation().LastFailed()
	assert.False(t, ok)
}

func TestConversation_IsDefault(t *testing.T) {
	assert.True(t, NewConversation().IsDefault())
	assert.False(t, sampleConversation().IsDefault())
	assert.False(t, Conversation{{ID: "x", Role: RoleBot, Text: "hi"}}.IsDefault())
	assert.False(t, Conversation{}.IsDefault())
}

func TestConversation_Validate(t *testing.T) {
	assert.NoError(t, sampleConversation().Validate())

	dup := sampleConversation().Append(Message{ID: "u1", Role: RoleUser, Text: "again"})
	assert.Error(t, dup.Validate())

	late := Conversation{{ID: "u1", Role: RoleUser, Text: "hi"}, Greeting()}
	assert.Error(t, late.Validate())
}

func TestConversation_History(t *testing.T) {
	conv := sampleConversation().Append(Message{ID: "u3", Role: RoleUser, Text: "pending"})

	got := ids(Conversation(conv.History("u3")))
	assert.Equal(t, []string{"u1", "b1"}, got,
		"greeting, failed messages, their notices and excluded ids are dropped")
}

func TestConversation_HistoryKeepsUnrelatedNotice(t *testing.T) {
	// A notice whose predecessor was retried successfully is ordinary text.
	conv := Conversation{
		Greeting(),
		{ID: "u1", Role: RoleUser, Text: "hi"},
		{ID: "b1", Role: RoleBot, Text: FailureNotice},
	}
	assert.Equal(t, []string{"u1", "b1"}, ids(Conversation(conv.History())))
}

func ids(c Conversation) []string {
	out := make([]string, len(c))
	for i, m := range c {
		out[i] = m.ID
	}
	return out
}
