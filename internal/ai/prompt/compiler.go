package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai_lp_server/internal/schema"
)

// Options carries the optional inputs of one compilation.
type Options struct {
	// Theme, when present, is embedded verbatim as JSON with an instruction
	// to respect it.
	Theme map[string]any
	// ExistingFileContent is the full current text of the file being edited.
	ExistingFileContent string
}

// Compile assembles the complete instruction payload for one request. It is
// a pure function of its inputs; the section order is fixed and downstream
// checks depend on it (constraints render last among instructional content,
// directly before the user request).
func Compile(userRequest string, cfg *Config, reg *schema.Registry, opts Options) string {
	var sb strings.Builder

	sb.WriteString(cfg.SystemRole)
	sb.WriteString("\n\n")

	sb.WriteString("## 指示\n")
	sb.WriteString(bulletList(cfg.Instructions))
	sb.WriteString("\n\n")

	sb.WriteString("## 利用可能なツール\n")
	sb.WriteString(toolDocumentation(cfg.AvailableTools))
	sb.WriteString("\n\n")

	sb.WriteString("## ツールの利用方法\n")
	sb.WriteString(bulletList(cfg.ToolInstructions))
	sb.WriteString("\n\n")

	sb.WriteString("## 応答フォーマットの例\n")
	sb.WriteString("```json\n")
	sb.WriteString(marshalIndent(cfg.Examples))
	sb.WriteString("\n```\n\n")

	if opts.Theme != nil {
		sb.WriteString("## 現在のテーマ設定\n")
		sb.WriteString("以下のテーマ設定を考慮して、コンテンツやスタイルを生成してください。\n")
		sb.WriteString("```json\n")
		sb.WriteString(marshalIndent(opts.Theme))
		sb.WriteString("\n```\n\n")
	}

	sb.WriteString("## 既存のブロック定義\n")
	sb.WriteString(reg.Documentation())
	sb.WriteString("\n\n")

	sb.WriteString("## 制約事項\n")
	sb.WriteString(bulletList(cfg.Constraints))
	sb.WriteString("\n\n")

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "ユーザーの現在のリクエスト: %q", userRequest)

	if opts.ExistingFileContent != "" {
		sb.WriteString("\n\n## 編集対象ファイルの現在の内容\n")
		sb.WriteString("これはあなたが編集しているファイルです。応答の際はこの内容を考慮してください。\n")
		sb.WriteString("```mdx\n")
		sb.WriteString(opts.ExistingFileContent)
		sb.WriteString("\n```")
	}

	return sb.String()
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

func toolDocumentation(tools []ToolSpec) string {
	docs := make([]string, 0, len(tools))
	for _, tool := range tools {
		var sb strings.Builder
		fmt.Fprintf(&sb, "### `%s`\n%s\n**パラメータ:**\n", tool.Name, tool.Description)
		for _, p := range tool.Parameters {
			fmt.Fprintf(&sb, "  - `%s` (%s): %s\n", p.Name, p.Type, p.Description)
		}
		docs = append(docs, strings.TrimSuffix(sb.String(), "\n"))
	}
	return strings.Join(docs, "\n\n")
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// Only unmarshalable values (channels etc.) reach this; examples and
		// themes come from JSON/YAML and always marshal.
		return "[]"
	}
	return string(data)
}
