// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/jeranaias/sirsi/internal/model"
)

// fakeGemini is a minimal generateContent endpoint.
type fakeGemini struct {
	mu       sync.Mutex
	requests []generateRequest
	reply    string
	status   int
}

type generateRequest struct {
	Path     string
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
		TopP        float64 `json:"topP"`
		TopK        float64 `json:"topK"`
	} `json:"generationConfig"`
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req generateRequest
	_ = json.Unmarshal(body, &req)
	req.Path = r.URL.Path

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status, reply := f.status, f.reply
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"boom","status":"FAILED"}}`, status)
		return
	}
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": reply}},
				},
			},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeGemini) last(t *testing.T) generateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeGemini) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "  "}, nil)
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiSession_SendReturnsReply(t *testing.T) {
	fake := &fakeGemini{reply: "Your order ships tomorrow."}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	reply, err := session.Send(context.Background(), "Where is my order?")
	require.NoError(t, err)
	assert.Equal(t, "Your order ships tomorrow.", reply)

	req := fake.last(t)
	assert.Contains(t, req.Path, DefaultModel)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "Where is my order?", req.Contents[0].Parts[0].Text)
	assert.InDelta(t, Temperature, req.GenerationConfig.Temperature, 0.001)
	assert.InDelta(t, TopP, req.GenerationConfig.TopP, 0.001)
	assert.InDelta(t, TopK, req.GenerationConfig.TopK, 0.001)
}

func TestGeminiSession_SendsSystemInstruction(t *testing.T) {
	fake := &fakeGemini{reply: "ok"}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	_, err = session.Send(context.Background(), "hello")
	require.NoError(t, err)

	req := fake.last(t)
	require.NotNil(t, req.SystemInstruction)
	require.Len(t, req.SystemInstruction.Parts, 1)
	got := req.SystemInstruction.Parts[0].Text
	assert.Equal(t, SystemInstruction, got)
	assert.Contains(t, got, "customer support agent for 'Sirsi'")
	assert.Contains(t, got, "escalate the issue")
	assert.Contains(t, got, "Be empathetic and patient with users.")
}

// A session created from a persisted conversation carries the real turns
// only, mapped onto Gemini roles.
func TestGeminiClient_SeedHistoryIsFiltered(t *testing.T) {
	fake := &fakeGemini{reply: "ok"}
	client := newTestClient(t, fake)

	seed := model.Conversation{
		model.Greeting(),
		{ID: "u1", Role: model.RoleUser, Text: "hi"},
		{ID: "b1", Role: model.RoleBot, Text: "hello"},
		{ID: "u2", Role: model.RoleUser, Text: "lost", Error: true},
		{ID: "n2", Role: model.RoleBot, Text: model.FailureNotice},
	}

	session, err := client.CreateSession(context.Background(), seed)
	require.NoError(t, err)
	_, err = session.Send(context.Background(), "next")
	require.NoError(t, err)

	req := fake.last(t)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "hi", req.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", req.Contents[1].Role)
	assert.Equal(t, "hello", req.Contents[1].Parts[0].Text)
	assert.Equal(t, "next", req.Contents[2].Parts[0].Text)
}

func TestGeminiSession_HistoryAccumulates(t *testing.T) {
	fake := &fakeGemini{reply: "first reply"}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)
	_, err = session.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = session.Send(context.Background(), "two")
	require.NoError(t, err)

	req := fake.last(t)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, "first reply", req.Contents[1].Parts[0].Text)
}

func TestGeminiSession_HTTPFailureIsRemoteError(t *testing.T) {
	fake := &fakeGemini{status: http.StatusBadRequest}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "hello")
	require.Error(t, err)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "send", rerr.Op)
}

func TestGeminiSession_EmptyReply(t *testing.T) {
	fake := &fakeGemini{reply: "   "}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestGeminiSession_CanceledContext(t *testing.T) {
	fake := &fakeGemini{reply: "late"}
	client := newTestClient(t, fake)

	session, err := client.CreateSession(context.Background(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = session.Send(ctx, "hello")
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(genai.APIError{Code: http.StatusTooManyRequests}), ErrRateLimited)
	assert.ErrorIs(t, classify(genai.APIError{Code: http.StatusUnauthorized}), ErrAuthFailed)

	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, classify(plain))
}

func TestToContents_Roles(t *testing.T) {
	contents := ToContents([]model.Message{
		{ID: "u1", Role: model.RoleUser, Text: "a"},
		{ID: "b1", Role: model.RoleBot, Text: "b"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
}
