package models

import "strings"

// AskQuery is an incoming question with an optional result count.
type AskQuery struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate normalizes the query in place: an omitted TopK becomes the
// default of 3, an oversized one is capped at 20, and an explicit negative
// value is rejected. The question itself is not required here; the engine
// answers blank questions with a fixed fallback response.
func (q *AskQuery) Validate() error {
	if q.TopK < 0 {
		return NewValidationError("top_k", "top_k must be at least 1")
	}
	if q.TopK == 0 {
		q.TopK = 3
	}
	if q.TopK > 20 {
		q.TopK = 20
	}
	return nil
}

// QAPairInput is the payload for adding one QA pair to the knowledge base.
type QAPairInput struct {
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords,omitempty"`
}

// Validate trims all text fields in place and rejects the input when
// category, question, or answer is empty after trimming. Keywords are
// optional; blank keywords are dropped.
func (in *QAPairInput) Validate() error {
	in.Category = strings.TrimSpace(in.Category)
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)
	if in.Category == "" {
		return NewValidationError("category", "category is required")
	}
	if in.Question == "" {
		return NewValidationError("question", "question is required")
	}
	if in.Answer == "" {
		return NewValidationError("answer", "answer is required")
	}
	kept := in.Keywords[:0]
	for _, kw := range in.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			kept = append(kept, kw)
		}
	}
	in.Keywords = kept
	return nil
}

// TrainRequest carries the hyperparameters for a training run. Zero values
// select the defaults.
type TrainRequest struct {
	Epochs       int     `json:"epochs,omitempty"`
	BatchSize    int     `json:"batch_size,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
}

// Validate fills in defaults (10 epochs, batch size 32, learning rate 0.001)
// and rejects out-of-range values.
func (r *TrainRequest) Validate() error {
	if r.Epochs == 0 {
		r.Epochs = 10
	}
	if r.BatchSize == 0 {
		r.BatchSize = 32
	}
	if r.LearningRate == 0 {
		r.LearningRate = 0.001
	}
	if r.Epochs < 1 {
		return NewValidationError("epochs", "epochs must be at least 1")
	}
	if r.BatchSize < 1 {
		return NewValidationError("batch_size", "batch_size must be at least 1")
	}
	if r.LearningRate <= 0 {
		return NewValidationError("learning_rate", "learning_rate must be positive")
	}
	return nil
}
