package gateway

import "github.com/citeassist/engine/internal/domain"

// inboundType tags a message's shape on the session stream, per spec.md
// §4.9's message taxonomy.
type inboundType string

const (
	inboundSuggest            inboundType = "suggest"
	inboundPing               inboundType = "ping"
	inboundUpdatePreferences  inboundType = "update_preferences"
)

// inbound is the envelope every client message is first decoded into; the
// fields used depend on Type.
type inbound struct {
	Type        inboundType            `json:"type"`
	Text        string                 `json:"text"`
	Context     *clientContext         `json:"context"`
	Preferences map[string]interface{} `json:"preferences"`
}

// clientContext is the editor snapshot a "suggest" message carries,
// consumed by C7's Analyze.
type clientContext struct {
	CursorOffset int     `json:"cursorOffset"`
	Section      *string `json:"section"`
}

// outbound message constructors. Each produces the exact JSON shape spec.md
// §4.9/§6 names; field names are camelCase per §6's Suggestion schema.

type suggestionsMessage struct {
	Type           string              `json:"type"`
	SearchStrategy string              `json:"searchStrategy"`
	UsedReranking  bool                `json:"usedReranking"`
	Results        []domain.Suggestion `json:"results"`
}

type pongMessage struct {
	Type string `json:"type"`
}

type preferencesUpdatedMessage struct {
	Type        string                 `json:"type"`
	Preferences map[string]interface{} `json:"preferences"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
