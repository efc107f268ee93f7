package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ai_lp_server/internal/ai"
	"ai_lp_server/internal/ai/prompt"
	"ai_lp_server/internal/content"
	"ai_lp_server/internal/types"
)

// malformedResponseMessage is the fixed user-facing text for replies the
// interpreter could not parse; the raw reply is logged, never returned.
const malformedResponseMessage = "AIからの応答の形式が正しくありませんでした。もう一度お試しください。"

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	orchestrator *ai.Orchestrator
	store        *content.Store
	prompts      *prompt.Store
	timeout      time.Duration
}

// NewAPIHandler initializes a new API handler with its dependencies.
func NewAPIHandler(orchestrator *ai.Orchestrator, store *content.Store, prompts *prompt.Store, timeout time.Duration) *APIHandler {
	return &APIHandler{
		orchestrator: orchestrator,
		store:        store,
		prompts:      prompts,
		timeout:      timeout,
	}
}

// --- Structs for API requests/responses ---

type GenerateRequest struct {
	Prompt   string         `json:"prompt" binding:"required"`
	History  []types.Turn   `json:"history"`
	FilePath string         `json:"filePath"`
	Theme    map[string]any `json:"theme"`
	Config   *prompt.Patch  `json:"config"`
}

type GenerateResponse struct {
	Success       bool         `json:"success"`
	ChatResponse  string       `json:"chatResponse"`
	ContentLength int          `json:"contentLength"`
	History       []types.Turn `json:"history"`
}

// --- API handlers ---

// POST /api/generate
func (h *APIHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.orchestrator.Generate(ctx, ai.GenerateInput{
		Prompt:      req.Prompt,
		History:     req.History,
		FilePath:    req.FilePath,
		Theme:       req.Theme,
		ConfigPatch: req.Config,
	})
	if err != nil {
		h.renderGenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Success:       true,
		ChatResponse:  result.ChatResponse,
		ContentLength: result.ContentLength,
		History:       result.History,
	})
}

// renderGenerateError maps the orchestrator's error taxonomy onto HTTP
// status categories: input → 400, policy → 403, everything downstream of the
// model → 500. Responses carry the model's chat text whenever one exists.
func (h *APIHandler) renderGenerateError(c *gin.Context, err error) {
	var policyErr *ai.PolicyError
	var parseErr *ai.ParseError
	var writeErr *ai.WriteError

	switch {
	case errors.Is(err, ai.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
	case errors.As(err, &policyErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":        err.Error(),
			"chatResponse": policyErr.ChatMessage,
		})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": malformedResponseMessage})
	case errors.As(err, &writeErr):
		// The model replied but nothing was saved; tell the user both.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "コンテンツの保存に失敗しました。変更は保存されていません。",
			"chatResponse": writeErr.ChatResponse,
		})
	case errors.Is(err, ai.ErrModelTimeout):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AIへのリクエストがタイムアウトしました。"})
	case errors.Is(err, ai.ErrModelUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AIサービスに接続できませんでした。APIキーと接続設定を確認してください。"})
	default:
		log.Error().Err(err).Msg("unclassified generation failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

// GET /api/pages
func (h *APIHandler) ListPages(c *gin.Context) {
	pages, err := h.store.ListPages()
	if err != nil {
		log.Error().Err(err).Msg("failed to read pages directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve page list."})
		return
	}
	c.JSON(http.StatusOK, pages)
}

// GET /api/pages/:filename
func (h *APIHandler) GetPageMeta(c *gin.Context) {
	filename := c.Param("filename")
	meta, err := h.store.Meta(filename)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Page not found."})
			return
		}
		log.Error().Err(err).Str("page", filename).Msg("failed to read page")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve page data."})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// PUT /api/pages/:filename
func (h *APIHandler) UpdatePageMeta(c *gin.Context) {
	filename := c.Param("filename")

	var meta map[string]any
	if err := c.ShouldBindJSON(&meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.store.SetMeta(filename, meta); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Page not found."})
			return
		}
		log.Error().Err(err).Str("page", filename).Msg("failed to update page")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update page data."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PATCH /api/prompt-config
// Operator hot-patch of the prompt configuration; the merged snapshot is
// published atomically and applies to every subsequent compilation.
func (h *APIHandler) UpdatePromptConfig(c *gin.Context) {
	var patch prompt.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	cfg := h.prompts.Update(patch)
	log.Info().Int("version", cfg.Version).Msg("prompt config updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "version": cfg.Version})
}
