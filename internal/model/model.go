package model

import "time"

const EnvelopeVersion = "v1"

// Envelope is the single output shape every command prints. Agents key off
// success and error.code; data carries the command-specific payload.
type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

// ChatMessage is one turn of the conversation as the backend sees it.
// Role is "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body POSTed to the backend chat endpoint. Address and
// Chain give the backend wallet context for quote and portfolio panels;
// ConversationID is empty on the first turn.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	Address        string        `json:"address,omitempty"`
	Chain          string        `json:"chain,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Model          string        `json:"model,omitempty"`
}

// ChatResponse is one backend reply: prose plus zero or more panels to
// merge into the dashboard.
type ChatResponse struct {
	Reply          string   `json:"reply"`
	Panels         []Panel  `json:"panels,omitempty"`
	Sources        []Source `json:"sources,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// Panel is a backend-shaped dashboard unit. Type and Payload are passed
// through untyped; panel kinds evolve server-side without client releases.
type Panel struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Payload map[string]any `json:"payload,omitempty"`
	Sources []Source       `json:"sources,omitempty"`
}

type Source struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// ChatTurn is the envelope data for one chat exchange: the reply, the board
// after merging the turn's panels, and which widgets the turn touched.
type ChatTurn struct {
	Reply          string   `json:"reply"`
	ConversationID string   `json:"conversation_id"`
	Highlighted    []string `json:"highlighted,omitempty"`
	Widgets        any      `json:"widgets"`
}

// ExecutionResult is the envelope data for a submitted transaction.
type ExecutionResult struct {
	TxHash  string `json:"tx_hash"`
	ChainID int64  `json:"chain_id"`
	Panel   string `json:"panel"`
}
