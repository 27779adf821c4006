// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jeranaias/sirsi/internal/model"
)

// Fixed model configuration.
const (
	// DefaultModel is the Gemini model every session uses.
	DefaultModel = "gemini-2.5-flash"

	// Temperature, TopP and TopK are the sampling parameters.
	Temperature = 0.7
	TopP        = 0.9
	TopK        = 40

	// SystemInstruction sets the assistant persona.
	SystemInstruction = "You are a friendly, helpful, and professional customer support agent for 'Sirsi'. \n" +
		"Your goal is to assist users with their inquiries about products, orders, and technical issues. \n" +
		"- Keep your responses concise and easy to understand.\n" +
		"- If you cannot answer a question or if the user is frustrated, politely offer to connect them with a human agent by saying you will escalate the issue.\n" +
		"- Do not make up information you don't know.\n" +
		"- Be empathetic and patient with users."
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	// HTTPClient overrides the transport. Nil uses the SDK default.
	HTTPClient *http.Client

	// RequestsPerMinute throttles sends client-side. 0 disables throttling.
	RequestsPerMinute int
}

// GeminiClient is a Client backed by the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini client. It does not contact the API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, &Error{Op: "create", Err: ErrNotConfigured}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &Error{Op: "create", Err: fmt.Errorf("creating Gemini client: %w", err)}
	}

	g := &GeminiClient{
		client: client,
		model:  DefaultModel,
		config: generationConfig(),
		logger: logger.With(zap.String("component", "remote")),
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return g, nil
}

// generationConfig builds the fixed sampling and persona configuration.
func generationConfig() *genai.GenerateContentConfig {
	temp := float32(Temperature)
	topP := float32(TopP)
	topK := float32(TopK)

	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		TopK:              &topK,
	}
}

// Model returns the model name sessions are created with.
func (g *GeminiClient) Model() string {
	return g.model
}

// CreateSession starts a Gemini chat seeded with the given turns.
func (g *GeminiClient) CreateSession(ctx context.Context, seed []model.Message) (Session, error) {
	history := ToContents(seed)

	chat, err := g.client.Chats.Create(ctx, g.model, g.config, history)
	if err != nil {
		return nil, &Error{Op: "create", Err: classify(err)}
	}

	g.logger.Debug("session created", zap.Int("seed_turns", len(history)))
	return &geminiSession{chat: chat, limiter: g.limiter, logger: g.logger}, nil
}

// ToContents converts conversation messages into Gemini history. Messages
// that must not reach the model are dropped first.
func ToContents(msgs []model.Message) []*genai.Content {
	filtered := model.Conversation(msgs).History()

	contents := make([]*genai.Content, 0, len(filtered))
	for _, m := range filtered {
		var role genai.Role
		switch m.Role {
		case model.RoleBot:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return contents
}

// =============================================================================
// SESSION
// =============================================================================

type geminiSession struct {
	mu      sync.Mutex
	chat    *genai.Chat
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Send delivers text and returns the reply.
func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", &Error{Op: "send", Err: fmt.Errorf("%w: %v", ErrRateLimited, err)}
		}
	}

	start := time.Now()
	res, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		s.logger.Warn("send failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", &Error{Op: "send", Err: classify(err)}
	}

	reply := res.Text()
	if strings.TrimSpace(reply) == "" {
		s.logger.Warn("empty reply", zap.Duration("elapsed", time.Since(start)))
		return "", &Error{Op: "send", Err: ErrEmptyReply}
	}

	s.logger.Debug("reply received",
		zap.Int("chars", len(reply)),
		zap.Duration("elapsed", time.Since(start)))
	return reply, nil
}

// classify maps Gemini API status codes onto the package sentinels.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return err
	}
}
