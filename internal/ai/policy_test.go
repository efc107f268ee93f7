package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcePolicyBlocksRetiredTool(t *testing.T) {
	calls := []ToolCall{{Tool: "generate_component", Params: map[string]any{"blockName": "pricing"}}}

	err := EnforcePolicy(calls)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "generate_component", policyErr.Tool)
	assert.Contains(t, policyErr.ChatMessage, "hero")
	assert.Contains(t, policyErr.ChatMessage, "access_info")
	assert.Contains(t, policyErr.ChatMessage, "16種類")
}

func TestEnforcePolicyToleratesUnknownTools(t *testing.T) {
	assert.NoError(t, EnforcePolicy([]ToolCall{
		{Tool: "imaginary_tool"},
		{Tool: "delete_everything"},
	}))
}

func TestEnforcePolicyDropsSupersededCalls(t *testing.T) {
	assert.NoError(t, EnforcePolicy([]ToolCall{
		{Tool: "update_page", Params: map[string]any{"path": "home.mdx"}},
	}))
}

func TestEnforcePolicyNilAndEmpty(t *testing.T) {
	assert.NoError(t, EnforcePolicy(nil))
	assert.NoError(t, EnforcePolicy([]ToolCall{}))
}

func TestEnforcePolicyBlockedWinsOverOtherCalls(t *testing.T) {
	calls := []ToolCall{
		{Tool: "update_page"},
		{Tool: "generate_component"},
		{Tool: "unknown_tool"},
	}
	var policyErr *PolicyError
	require.ErrorAs(t, EnforcePolicy(calls), &policyErr)
}

func TestEnforcePolicyIsIdempotent(t *testing.T) {
	calls := []ToolCall{
		{Tool: "update_page"},
		{Tool: "generate_component"},
	}
	first := EnforcePolicy(calls)
	second := EnforcePolicy(calls)

	var e1, e2 *PolicyError
	require.ErrorAs(t, first, &e1)
	require.ErrorAs(t, second, &e2)
	assert.Equal(t, e1.Tool, e2.Tool)
	assert.Equal(t, e1.ChatMessage, e2.ChatMessage)
}
