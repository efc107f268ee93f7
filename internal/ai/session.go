package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"ai_lp_server/internal/types"
)

// ChatClient is the slice of the go-openai client the session needs; tests
// substitute a mock.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SessionOptions configures one model conversation.
type SessionOptions struct {
	Model           string
	MaxOutputTokens int
	Temperature     float32
	// JSONMode forces structured output via the response_format hint.
	JSONMode bool
}

// Session wraps the model client with conversation history. It is a
// transport boundary only: the raw reply is returned unparsed.
type Session struct {
	client  ChatClient
	opts    SessionOptions
	history []types.Turn
}

// NewSession starts a session seeded with prior turns. The slice is copied;
// callers keep ownership of theirs.
func NewSession(client ChatClient, history []types.Turn, opts SessionOptions) *Session {
	h := make([]types.Turn, len(history))
	copy(h, history)
	return &Session{client: client, opts: opts, history: h}
}

// Send appends message as a user turn, performs one model call and, on
// success, appends the reply as a model turn. Failures are classified as
// ErrModelTimeout or ErrModelUnavailable; the user turn stays appended
// either way, matching what the caller already showed in the chat.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	s.history = append(s.history, types.UserTurn(message))

	messages := make([]openai.ChatCompletionMessage, 0, len(s.history))
	for _, turn := range s.history {
		role := openai.ChatMessageRoleUser
		if turn.Role == types.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text()})
	}

	req := openai.ChatCompletionRequest{
		Model:       s.opts.Model,
		Messages:    messages,
		MaxTokens:   s.opts.MaxOutputTokens,
		Temperature: s.opts.Temperature,
	}
	if s.opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyModelError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn().Interface("usage", resp.Usage).Msg("model returned empty response")
		return "", errors.Join(ErrModelUnavailable, errors.New("empty response"))
	}

	raw := resp.Choices[0].Message.Content
	s.history = append(s.history, types.ModelTurn(raw))
	return raw, nil
}

// History returns the accumulated turns including the just-completed
// exchange. The returned slice is a copy.
func (s *Session) History() []types.Turn {
	h := make([]types.Turn, len(s.history))
	copy(h, s.history)
	return h
}

func classifyModelError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrModelTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 504 {
			return errors.Join(ErrModelTimeout, err)
		}
		return errors.Join(ErrModelUnavailable, err)
	}

	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return errors.Join(ErrModelTimeout, err)
	}
	return errors.Join(ErrModelUnavailable, err)
}
