// Package models defines core data structures for answer chunks, embeddings, and broker events.
package models

// AnswerChunk is a bounded slice of a knowledge base answer, produced at index
// time and immutable afterwards.
type AnswerChunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Sequence int    `json:"sequence"`
}

// Embedding pairs a chunk ID with its unit-norm vector.
type Embedding struct {
	ID     string
	Vector []float32
}

// QuestionEvent is the inbound event on the question queue. The correlation id
// travels as a message property, not in the body.
type QuestionEvent struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// Answer event statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// AnswerEvent is the outbound event on the answer queue, echoing the inbound
// correlation id as a message property. A failed request carries StatusError
// and a message instead of an answer; no partial answers are ever sent.
type AnswerEvent struct {
	UserID  string `json:"user_id"`
	Status  string `json:"status"`
	Answer  string `json:"answer,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorEvent returns an AnswerEvent carrying a failure envelope for userID.
func ErrorEvent(userID, message string) AnswerEvent {
	return AnswerEvent{UserID: userID, Status: StatusError, Message: message}
}
