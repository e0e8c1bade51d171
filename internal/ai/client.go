// Package ai holds the HTTP clients for the two external gateways: the
// embedding service and the completion (chat) service. Both speak the
// OpenAI-compatible wire format.
package ai

import (
	"net/http"
	"time"
)

// ChatMessage is one entry of an ordered role/content message list.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
