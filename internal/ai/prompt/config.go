package prompt

import (
	"sync"
	"sync/atomic"
)

// ToolParam documents one parameter of a tool in the prompt manifest.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// ToolSpec is one entry of the tool-capability manifest rendered into the
// prompt. The manifest has been empty since tool-calling was disabled, but
// the section still renders so older transcripts keep their meaning.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ToolParam `json:"parameters"`
}

// Config is the full instruction set compiled into every prompt. Values are
// treated as immutable once published; see Store.
type Config struct {
	Version          int              `json:"version"`
	SystemRole       string           `json:"systemRole"`
	Instructions     []string         `json:"instructions"`
	Constraints      []string         `json:"constraints"`
	ToolInstructions []string         `json:"toolInstructions"`
	AvailableTools   []ToolSpec       `json:"availableTools"`
	Examples         []map[string]any `json:"examples,omitempty"`
}

// Patch is a partial Config used for runtime updates. Nil slices and nil
// pointers mean "keep the current value"; supplied fields replace wholesale.
type Patch struct {
	SystemRole       *string          `json:"systemRole,omitempty"`
	Instructions     []string         `json:"instructions,omitempty"`
	Constraints      []string         `json:"constraints,omitempty"`
	ToolInstructions []string         `json:"toolInstructions,omitempty"`
	AvailableTools   []ToolSpec       `json:"availableTools,omitempty"`
	Examples         []map[string]any `json:"examples,omitempty"`
}

// SupportedBlocks lists the block types the editor may use, in the order
// they are cited in the default instructions and the policy message.
var SupportedBlocks = []string{
	"hero", "content", "testimonial", "features", "video", "callout",
	"stats", "cta", "profile", "gallery", "information", "pricing_plan",
	"portfolio", "company_profile", "menu", "access_info",
}

const blockListJa = "hero、content、testimonial、features、video、callout、stats、cta、profile、gallery、information、pricing_plan、portfolio、company_profile、menu、access_info"

// DefaultConfig returns the shipped instruction set: sixteen block types,
// tool-calling fully disabled, all edits expressed through mdxContent.
func DefaultConfig() Config {
	return Config{
		Version:    1,
		SystemRole: "あなたは、ユーザーの指示に従ってTinaCMS製のWebサイトを動的に構築するAIアシスタントです。必要に応じて利用可能なツールを呼び出し、コンポーネントの生成やページの更新を行ってください。",
		Instructions: []string{
			"ユーザーの抽象的な指示（例：「会社の紹介ページを作って」）を具体的なタスクに分解してください。",
			"既存の16種類のブロック（" + blockListJa + "）を組み合わせて要件を満たす構成を提案してください。",
			"どのような要求でも新しいブロックは作成せず、既存ブロックの設定やコンテンツを調整して対応してください。",
			"ページのコンテンツを更新または置換する必要がある場合は、`mdxContent`フィールドに完全なMdxコンテンツを出力してください。",
			"常にユーザーへの応答を`chatResponse`フィールドに含めてください。",
		},
		Constraints: []string{
			"mdxの構造を変更してはいけません。",
			"スキーマ定義に存在しないフィールドを追加してはいけません。",
			"必須フィールドを省略してはいけません。",
			"**重要**: 新規ブロックの作成は一切禁止されています。既存の16種類のブロック（" + blockListJa + "）のみを使用してください。",
			"**重要**: どのような場合でも新しいコンポーネントを生成してはいけません。既存ブロックの組み合わせと設定で要件を満たすよう提案してください。",
			"**重要**: 画像を扱う場合は、既存ブロック（hero、features等）の画像フィールドを使用してください。",
		},
		ToolInstructions: []string{
			"応答は必ずJSON形式で返してください。",
			"**重要**: 現在、利用可能なツールは定義されていません。`toolCalls`配列は空にするか、省略してください。",
			"すべての処理は`mdxContent`フィールドに完全なMDXコンテンツを出力することで行ってください。",
			"ツールを呼び出さず、直接的なコンテンツ生成・更新のみを行ってください。",
		},
		AvailableTools: []ToolSpec{},
		Examples: []map[string]any{
			{
				"toolCalls":    []any{},
				"mdxContent":   "---\ntitle: Home\nblocks:\n  - _template: hero\n    headline: ようこそ\n---\n",
				"chatResponse": "ヒーローセクションを追加しました。",
			},
		},
	}
}

// Store publishes immutable Config snapshots. Readers get a consistent view
// via an atomic pointer; writers serialize on a mutex and publish a copied,
// version-bumped Config so an in-flight compile never observes a torn update.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Config]
}

// NewStore seeds a store with cfg at version 1 (or the version it carries).
func NewStore(cfg Config) *Store {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	s := &Store{}
	s.current.Store(&cfg)
	return s
}

// Snapshot returns the currently published config. The returned value must
// not be mutated.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Update merges p into the current config copy-on-write and publishes the
// result with an incremented version. The new snapshot is returned.
func (s *Store) Update(p Patch) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	next.Version++
	if p.SystemRole != nil {
		next.SystemRole = *p.SystemRole
	}
	if p.Instructions != nil {
		next.Instructions = p.Instructions
	}
	if p.Constraints != nil {
		next.Constraints = p.Constraints
	}
	if p.ToolInstructions != nil {
		next.ToolInstructions = p.ToolInstructions
	}
	if p.AvailableTools != nil {
		next.AvailableTools = p.AvailableTools
	}
	if p.Examples != nil {
		next.Examples = p.Examples
	}
	s.current.Store(&next)
	return &next
}
