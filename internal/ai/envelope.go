package ai

import (
	"encoding/json"
	"strings"
)

// ToolCall is a model-requested invocation of a named server-side
// capability.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Envelope is the structured reply expected from the model. ChatResponse is
// mandatory in what the orchestrator ultimately returns, but the interpreter
// does not synthesize it; that default lives in the orchestrator.
type Envelope struct {
	ToolCalls    []ToolCall `json:"toolCalls,omitempty"`
	MdxContent   string     `json:"mdxContent,omitempty"`
	ChatResponse string     `json:"chatResponse"`
}

// Interpret parses the model's raw text as a response envelope. A leading
// code fence (with optional language tag) and trailing fence are stripped
// first. On failure a *ParseError carrying the raw text is returned so the
// caller can log it and answer with a fixed user-facing message.
func Interpret(raw string) (Envelope, error) {
	cleaned := stripFence(raw)
	if cleaned == "" {
		return Envelope{}, &ParseError{Reason: "empty response", Raw: raw}
	}

	var wire struct {
		ToolCalls    json.RawMessage `json:"toolCalls"`
		MdxContent   string          `json:"mdxContent"`
		ChatResponse string          `json:"chatResponse"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return Envelope{}, &ParseError{Reason: err.Error(), Raw: raw}
	}

	env := Envelope{ChatResponse: wire.ChatResponse}

	// toolCalls present but not a sequence is treated as absent.
	if len(wire.ToolCalls) > 0 {
		var calls []ToolCall
		if err := json.Unmarshal(wire.ToolCalls, &calls); err == nil {
			env.ToolCalls = calls
		}
	}

	// Blank content must never trigger a write.
	if strings.TrimSpace(wire.MdxContent) != "" {
		env.MdxContent = wire.MdxContent
	}

	if env.ChatResponse == "" && env.ToolCalls == nil && env.MdxContent == "" {
		return Envelope{}, &ParseError{Reason: "no usable fields in response", Raw: raw}
	}
	return env, nil
}

// stripFence removes one surrounding markdown code fence, accepting an
// optional language tag on the opening line.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[len("```"):]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[nl+1:]
	} else {
		// Single-line fenced payload: ```{"a":1}```
		s = strings.TrimSpace(s)
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	return s
}
