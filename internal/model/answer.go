package model

// Source is one citation derived from retrieved chunk metadata.
type Source struct {
	File      string  `json:"file"`
	Section   string  `json:"section"`
	Relevance float32 `json:"relevance_score,omitempty"`
}

// SourceDetail additionally carries the hydrated chunk text; used by the
// sources-only search endpoint.
type SourceDetail struct {
	Text      string  `json:"text"`
	File      string  `json:"file"`
	Section   string  `json:"section"`
	Relevance float32 `json:"relevance"`
}

// Explanation is the parsed structured answer from the generation stage.
type Explanation struct {
	Summary     string   `json:"summary"`
	KeyPoint    string   `json:"key_point"`
	Explanation string   `json:"explanation"`
	NextSteps   string   `json:"next_steps"`
	Sources     []Source `json:"sources"`
	Query       string   `json:"query"`
	RawResponse string   `json:"raw_response,omitempty"`
}

// SuggestedAction is an optional follow-up hint, e.g. offering to draft a
// formal letter. The letter generator itself is a separate feature module.
type SuggestedAction struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	LetterType  string `json:"letter_type"`
	Prompt      string `json:"prompt"`
}

// ChatResult is the full chat-turn response, including provenance flags.
// A non-legal short-circuit carries no sources and no summarized query;
// omitempty keeps those fields out of the payload in that case.
type ChatResult struct {
	Summary         string           `json:"summary"`
	KeyPoint        string           `json:"key_point"`
	Explanation     string           `json:"explanation"`
	NextSteps       string           `json:"next_steps"`
	Sources         []Source         `json:"sources,omitempty"`
	Query           string           `json:"query"`
	ContextUsed     bool             `json:"context_used"`
	IsNonLegal      bool             `json:"is_non_legal"`
	OriginalQuery   string           `json:"original_query,omitempty"`
	SummarizedQuery string           `json:"summarized_query,omitempty"`
	SuggestedAction *SuggestedAction `json:"suggested_action,omitempty"`
}
