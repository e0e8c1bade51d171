package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikrigel/polo-rag-lev-boots-project/internal/model"
)

var knowledgeKeywords = []string{"how", "what", "explain", "levboots"}

// ClassifyQuestion is a rule-based question classifier. Clarification cues
// are checked before knowledge keywords; the order matters because "what do
// you mean" would otherwise match the knowledge keyword "what".
func ClassifyQuestion(question string) model.QuestionType {
	lower := strings.ToLower(question)

	if strings.HasPrefix(lower, "clarify") ||
		strings.Contains(lower, "what do you mean") ||
		strings.Contains(lower, "explain that") {
		return model.QuestionClarification
	}
	for _, kw := range knowledgeKeywords {
		if strings.Contains(lower, kw) {
			return model.QuestionKnowledge
		}
	}
	return model.QuestionGeneral
}

// ContextUsage is the coarse token estimate of a message list: message
// count times a fixed per-message estimate. Deliberately not a tokenizer.
func ContextUsage(messageCount, tokenEstimate int) int {
	return messageCount * tokenEstimate
}

// ContextWindowFull reports whether the estimated usage has reached 90% of
// the window, the point at which compaction is worth it.
func ContextWindowFull(contextUsage, maxTokens int) bool {
	if maxTokens <= 0 {
		return false
	}
	return float64(contextUsage) >= 0.9*float64(maxTokens)
}

// RecentMessages walks the history newest-first, accumulating per-message
// word counts, and stops before the message that would exceed maxTokens.
// The kept subset is returned in chronological order.
func RecentMessages(messages []model.ConversationMessage, maxTokens int) []model.ConversationMessage {
	var kept []model.ConversationMessage
	total := 0
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := len(strings.Fields(messages[i].Content))
		if total+tokens > maxTokens {
			break
		}
		kept = append(kept, messages[i])
		total += tokens
	}
	// restore chronological order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// Compact replaces the older half of a history with a single synthetic
// summary message and keeps the newer half verbatim. A context-budget relief
// valve, not semantic summarization. Histories shorter than minMessages are
// left untouched and reported as not compacted.
func Compact(messages []model.ConversationMessage, minMessages int, summaryID string, now time.Time) ([]model.ConversationMessage, bool) {
	if len(messages) < minMessages {
		return messages, false
	}

	older := messages[:len(messages)/2]
	newer := messages[len(messages)-(len(messages)+1)/2:]

	questionCount := 0
	for _, m := range older {
		if m.Role == model.RoleUser {
			questionCount++
		}
	}

	summary := model.ConversationMessage{
		ID:        summaryID,
		Role:      model.RoleAssistant,
		Content:   fmt.Sprintf("[Summary: Previous conversation had %d questions. Continuing from latest context...]", questionCount),
		Timestamp: now,
	}

	compacted := make([]model.ConversationMessage, 0, len(newer)+1)
	compacted = append(compacted, summary)
	compacted = append(compacted, newer...)
	return compacted, true
}
