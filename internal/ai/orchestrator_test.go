package ai

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_lp_server/internal/ai/prompt"
	"ai_lp_server/internal/content"
	"ai_lp_server/internal/schema"
	"ai_lp_server/internal/types"
)

func orchestratorFixture(t *testing.T, client ChatClient) (*Orchestrator, *content.Store) {
	t.Helper()
	store := content.NewStore(t.TempDir())

	reg, err := schema.Load(filepath.Join("..", "..", "prompts", "block-schemas.yaml"))
	require.NoError(t, err)

	o := NewOrchestrator(client, store, prompt.NewStore(prompt.DefaultConfig()), reg, testOptions())
	return o, store
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	o, _ := orchestratorFixture(t, &fakeClient{reply: "{}"})
	_, err := o.Generate(context.Background(), GenerateInput{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGenerateBlockedToolCallIsForbidden(t *testing.T) {
	client := &fakeClient{reply: `{"toolCalls":[{"tool":"generate_component","params":{"blockName":"pricing"}}],"mdxContent":"# should not persist","chatResponse":"creating a block"}`}
	o, store := orchestratorFixture(t, client)

	_, err := o.Generate(context.Background(), GenerateInput{
		Prompt:   "add a pricing section",
		FilePath: "home.mdx",
	})

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	for _, name := range prompt.SupportedBlocks {
		assert.Contains(t, policyErr.ChatMessage, name)
	}

	// Policy blocking takes precedence over content writing.
	_, readErr := store.Read("home.mdx")
	assert.ErrorIs(t, readErr, content.ErrNotFound)
}

func TestGenerateMissingTargetFileProceeds(t *testing.T) {
	client := &fakeClient{reply: `{"chatResponse":"ok"}`}
	o, _ := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{
		Prompt:   "describe the page",
		FilePath: "does-not-exist.mdx",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.ChatResponse)

	// No existing-file section was compiled in.
	sent := client.requests[0].Messages[len(client.requests[0].Messages)-1].Content
	assert.NotContains(t, sent, "編集対象ファイルの現在の内容")
}

func TestGenerateExistingFileEmbeddedInPrompt(t *testing.T) {
	client := &fakeClient{reply: `{"chatResponse":"ok"}`}
	o, store := orchestratorFixture(t, client)
	require.NoError(t, store.Write("home.mdx", "---\ntitle: Home\n---\nold body"))

	_, err := o.Generate(context.Background(), GenerateInput{Prompt: "tweak it", FilePath: "home.mdx"})
	require.NoError(t, err)

	sent := client.requests[0].Messages[0].Content
	assert.Contains(t, sent, "編集対象ファイルの現在の内容")
	assert.Contains(t, sent, "old body")
}

func TestGenerateFencedChatOnlyReply(t *testing.T) {
	client := &fakeClient{reply: "```json\n{\"chatResponse\":\"done\"}\n```"}
	o, store := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{Prompt: "say done", FilePath: "home.mdx"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.ChatResponse)
	assert.Equal(t, 0, res.ContentLength)

	_, readErr := store.Read("home.mdx")
	assert.ErrorIs(t, readErr, content.ErrNotFound)
}

func TestGenerateUnparsableReplyIsParseError(t *testing.T) {
	client := &fakeClient{reply: "Sorry, I cannot help."}
	o, _ := orchestratorFixture(t, client)

	_, err := o.Generate(context.Background(), GenerateInput{Prompt: "help"})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "Sorry, I cannot help.", parseErr.Raw)
}

func TestGenerateWritesContentAndReportsLength(t *testing.T) {
	mdx := "---\ntitle: Home\nblocks:\n  - _template: hero\n    headline: ようこそ\n---\n"
	client := &fakeClient{reply: `{"mdxContent":` + jsonString(mdx) + `,"chatResponse":"updated"}`}
	o, store := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{
		Prompt:   "add a hero",
		History:  []types.Turn{types.UserTurn("hi"), types.ModelTurn("hello")},
		FilePath: "home.mdx",
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", res.ChatResponse)
	assert.Equal(t, len(mdx), res.ContentLength)

	written, err := store.Read("home.mdx")
	require.NoError(t, err)
	assert.Equal(t, mdx, written)

	// Prior history, new user turn, new model turn.
	require.Len(t, res.History, 4)
	assert.Equal(t, types.RoleModel, res.History[3].Role)
}

func TestGenerateBlankMdxContentDoesNotWrite(t *testing.T) {
	client := &fakeClient{reply: `{"mdxContent":"   ","chatResponse":"nothing to save"}`}
	o, store := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{Prompt: "noop", FilePath: "home.mdx"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ContentLength)

	_, readErr := store.Read("home.mdx")
	assert.ErrorIs(t, readErr, content.ErrNotFound)
}

func TestGenerateNoFilePathSkipsWrite(t *testing.T) {
	client := &fakeClient{reply: `{"mdxContent":"# body","chatResponse":"ok"}`}
	o, _ := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{Prompt: "just chat"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ContentLength)
}

func TestGenerateDefaultsMissingChatResponse(t *testing.T) {
	client := &fakeClient{reply: `{"mdxContent":"# body"}`}
	o, _ := orchestratorFixture(t, client)

	res, err := o.Generate(context.Background(), GenerateInput{Prompt: "update", FilePath: "home.mdx"})
	require.NoError(t, err)
	assert.Equal(t, defaultChatResponse, res.ChatResponse)
	assert.Equal(t, len("# body"), res.ContentLength)
}

// failingStore simulates a persistence outage.
type failingStore struct{}

func (failingStore) Read(string) (string, error) { return "", content.ErrNotFound }
func (failingStore) Write(string, string) error  { return errors.New("disk full") }

func TestGenerateWriteFailureKeepsChatResponse(t *testing.T) {
	client := &fakeClient{reply: `{"mdxContent":"# body","chatResponse":"saved your page"}`}
	reg, err := schema.Load(filepath.Join("..", "..", "prompts", "block-schemas.yaml"))
	require.NoError(t, err)
	o := NewOrchestrator(client, failingStore{}, prompt.NewStore(prompt.DefaultConfig()), reg, testOptions())

	_, genErr := o.Generate(context.Background(), GenerateInput{Prompt: "update", FilePath: "home.mdx"})
	var writeErr *WriteError
	require.ErrorAs(t, genErr, &writeErr)
	assert.Equal(t, "saved your page", writeErr.ChatResponse)
	assert.Equal(t, "home.mdx", writeErr.Path)
}

func TestGenerateAppliesConfigPatchBeforeCompiling(t *testing.T) {
	client := &fakeClient{reply: `{"chatResponse":"ok"}`}
	o, _ := orchestratorFixture(t, client)

	_, err := o.Generate(context.Background(), GenerateInput{
		Prompt:      "anything",
		ConfigPatch: &prompt.Patch{Constraints: []string{"only use the hero block"}},
	})
	require.NoError(t, err)

	sent := client.requests[0].Messages[0].Content
	assert.Contains(t, sent, "- only use the hero block")
}

func TestGenerateCompiledPromptIsCachedPerConfigVersion(t *testing.T) {
	client := &fakeClient{reply: `{"chatResponse":"ok"}`}
	o, _ := orchestratorFixture(t, client)

	for i := 0; i < 2; i++ {
		_, err := o.Generate(context.Background(), GenerateInput{Prompt: "same request"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, o.cache.Len())

	// A config update produces a new cache entry for the same request text.
	o.prompts.Update(prompt.Patch{Constraints: []string{"fresh constraint"}})
	_, err := o.Generate(context.Background(), GenerateInput{Prompt: "same request"})
	require.NoError(t, err)
	assert.Equal(t, 2, o.cache.Len())
	assert.Contains(t, client.requests[2].Messages[0].Content, "- fresh constraint")
}

func TestGenerateThemeSectionCompiledIn(t *testing.T) {
	client := &fakeClient{reply: `{"chatResponse":"ok"}`}
	o, _ := orchestratorFixture(t, client)

	_, err := o.Generate(context.Background(), GenerateInput{
		Prompt: "restyle",
		Theme:  map[string]any{"primary": "#101010"},
	})
	require.NoError(t, err)
	assert.Contains(t, client.requests[0].Messages[0].Content, "現在のテーマ設定")
}

func jsonString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
