package types

// Part is one text segment of a conversation turn. The front end persists
// turns in this shape, so the field layout is part of the wire contract.
type Part struct {
	Text string `json:"text"`
}

// Turn is a single entry of a conversation history. Role is "user" or
// "model". Histories are append-only; a turn is never edited in place.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// UserTurn builds a single-segment user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelTurn builds a single-segment model turn.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// Text joins the turn's segments into one string.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var out string
	for _, p := range t.Parts {
		out += p.Text
	}
	return out
}
