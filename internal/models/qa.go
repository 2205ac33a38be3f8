// Package models defines the data structures shared across the matching
// engine: knowledge-base entries, queries, match results, and schedules.
package models

// QAPair is one question/answer entry together with the keywords used for
// overlap scoring.
type QAPair struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// Category groups QA pairs under a name. Pair order is insertion order.
type Category struct {
	Name    string   `json:"name"`
	QAPairs []QAPair `json:"qa_pairs"`
}

// KnowledgeBase is the on-disk document shape: an ordered list of categories.
type KnowledgeBase struct {
	Categories []Category `json:"categories"`
}

// ProcessedEntry is the derived projection of a QAPair used for scoring.
// Normalized fields are computed once when a snapshot is built, never at
// query time.
type ProcessedEntry struct {
	Category           string
	Question           string
	Answer             string
	Keywords           []string
	NormalizedText     string
	NormalizedTokens   []string
	NormalizedKeywords []string
}

// Match is one ranked candidate returned alongside the selected answer.
type Match struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// MatchResult is the complete response for one ask operation. MatchedQuestion
// and Category are nil when no entry cleared the acceptance threshold.
type MatchResult struct {
	Answer          string  `json:"answer"`
	Confidence      float64 `json:"confidence"`
	MatchedQuestion *string `json:"matched_question"`
	Category        *string `json:"category"`
	TopMatches      []Match `json:"top_matches"`
}

// TrainResult summarizes a completed training run.
type TrainResult struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Examples     int     `json:"training_samples"`
	FinalLoss    float64 `json:"final_loss"`
	ArtifactID   string  `json:"artifact_id,omitempty"`
}
