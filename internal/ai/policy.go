package ai

import (
	"strings"

	"github.com/rs/zerolog/log"

	"ai_lp_server/internal/ai/prompt"
)

// toolVerdict classifies one tool name. The table below is the single
// source of policy; changing policy is a data edit.
type toolVerdict int

const (
	// verdictUnknown tolerates hallucinated capabilities: skip and log.
	verdictUnknown toolVerdict = iota
	// verdictBlocked is for recognized-but-retired tools whose execution
	// must fail the whole request.
	verdictBlocked
	// verdictSupersededNoop is for recognized calls replaced by direct
	// mdxContent output: dropped, processing continues.
	verdictSupersededNoop
)

// toolPolicy reflects the current capability set: dynamic block creation is
// fully disabled, page updates happen through mdxContent. Tool names from
// older transcripts stay recognized so replaying them cannot mutate state.
var toolPolicy = map[string]toolVerdict{
	"generate_component": verdictBlocked,
	"update_page":        verdictSupersededNoop,
}

// blockedToolMessage enumerates the currently supported blocks; shown to the
// user whenever a blocked tool call is requested.
func blockedToolMessage() string {
	return "新規ブロックの作成はできません。既存の16種類のブロック（" +
		strings.Join(prompt.SupportedBlocks, "、") +
		"）を組み合わせて対応してください。"
}

// EnforcePolicy inspects requested tool calls against the policy table. Each
// call is classified independently; inspection has no hidden state, so
// enforcing twice yields the same outcome. A blocked call fails the request
// with a *PolicyError carrying the corrective chat message; unknown and
// superseded calls are dropped.
func EnforcePolicy(calls []ToolCall) error {
	for _, call := range calls {
		switch toolPolicy[call.Tool] {
		case verdictBlocked:
			log.Warn().Str("tool", call.Tool).Msg("blocked tool call requested")
			return &PolicyError{Tool: call.Tool, ChatMessage: blockedToolMessage()}
		case verdictSupersededNoop:
			log.Debug().Str("tool", call.Tool).Msg("superseded tool call dropped")
		default:
			log.Info().Str("tool", call.Tool).Msg("unknown tool call skipped")
		}
	}
	return nil
}
