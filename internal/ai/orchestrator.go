package ai

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ai_lp_server/internal/ai/prompt"
	"ai_lp_server/internal/content"
	"ai_lp_server/internal/schema"
	"ai_lp_server/internal/types"
)

// defaultChatResponse substitutes for a missing chatResponse in an otherwise
// valid envelope.
const defaultChatResponse = "処理が完了しました。"

// ContentStore is the external collaborator holding page content.
type ContentStore interface {
	Read(rel string) (string, error)
	Write(rel string, text string) error
}

// Orchestrator sequences one generation request: compile prompt, send,
// interpret, enforce policy, persist.
type Orchestrator struct {
	client   ChatClient
	store    ContentStore
	prompts  *prompt.Store
	registry *schema.Registry
	cache    *prompt.Cache
	session  SessionOptions
}

func NewOrchestrator(client ChatClient, store ContentStore, prompts *prompt.Store, registry *schema.Registry, session SessionOptions) *Orchestrator {
	return &Orchestrator{
		client:   client,
		store:    store,
		prompts:  prompts,
		registry: registry,
		cache:    prompt.NewCache(),
		session:  session,
	}
}

// GenerateInput is one user submission.
type GenerateInput struct {
	Prompt   string
	History  []types.Turn
	FilePath string
	Theme    map[string]any
	// ConfigPatch, when present, is applied to the prompt config before
	// compilation and published process-wide.
	ConfigPatch *prompt.Patch
}

// GenerateResult is the successful outcome. ContentLength is the number of
// bytes written, 0 when nothing was persisted.
type GenerateResult struct {
	ChatResponse  string
	ContentLength int
	History       []types.Turn
}

// Generate runs one full pass. No step retries; every failure mode maps to
// one error class (see errors.go) so the HTTP layer can classify.
func (o *Orchestrator) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if in.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	reqID := uuid.New().String()
	logger := log.With().Str("request_id", reqID).Logger()

	if in.ConfigPatch != nil {
		cfg := o.prompts.Update(*in.ConfigPatch)
		logger.Info().Int("version", cfg.Version).Msg("prompt config patched by request")
	}
	cfg := o.prompts.Snapshot()

	opts := prompt.Options{Theme: in.Theme}
	if in.FilePath != "" {
		existing, err := o.store.Read(in.FilePath)
		switch {
		case err == nil:
			opts.ExistingFileContent = existing
		case errors.Is(err, content.ErrNotFound):
			logger.Info().Str("path", in.FilePath).Msg("target file does not exist yet, compiling without existing content")
		default:
			logger.Warn().Err(err).Str("path", in.FilePath).Msg("could not read target file, compiling without existing content")
		}
	}

	key := o.cache.Key(cfg.Version, in.Prompt, opts)
	compiled, ok := o.cache.Get(key)
	if !ok {
		compiled = prompt.Compile(in.Prompt, cfg, o.registry, opts)
		o.cache.Put(key, compiled)
	}

	session := NewSession(o.client, in.History, o.session)
	raw, err := session.Send(ctx, compiled)
	if err != nil {
		logger.Error().Err(err).Msg("model call failed")
		return nil, err
	}

	env, err := Interpret(raw)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			logger.Error().Str("raw", parseErr.Raw).Msg("model response could not be parsed")
		}
		return nil, err
	}

	// Policy blocking takes precedence over content writing: a blocked tool
	// call fails the request even when mdxContent is also present.
	if err := EnforcePolicy(env.ToolCalls); err != nil {
		return nil, err
	}

	contentLength := 0
	if env.MdxContent != "" && in.FilePath != "" {
		if err := o.store.Write(in.FilePath, env.MdxContent); err != nil {
			logger.Error().Err(err).Str("path", in.FilePath).Msg("content write failed")
			return nil, &WriteError{
				Path:         in.FilePath,
				ChatResponse: chatOrDefault(env.ChatResponse),
				Err:          err,
			}
		}
		contentLength = len(env.MdxContent)
		logger.Info().Str("path", in.FilePath).Int("bytes", contentLength).Msg("content written")
	}

	return &GenerateResult{
		ChatResponse:  chatOrDefault(env.ChatResponse),
		ContentLength: contentLength,
		History:       session.History(),
	}, nil
}

func chatOrDefault(chat string) string {
	if chat == "" {
		return defaultChatResponse
	}
	return chat
}
