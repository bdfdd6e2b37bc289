package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

const (
	// excerptBudget caps the body excerpt per memory block, in characters.
	excerptBudget  = 300
	truncationMark = " [...]"

	// historyWindow is how many trailing conversation turns get appended.
	historyWindow = 6

	// reviewWindow is the trailing period a "weekly review" query covers.
	reviewWindow = 7 * 24 * time.Hour
)

// reviewKeywords trigger the temporal review filter on substring match.
// This is a deliberate keyword heuristic, not intent parsing; queries like
// "review my week in numbers" may miss and that is accepted behavior.
var reviewKeywords = []string{
	"weekly review",
	"week review",
	"this week",
	"past week",
}

// ContextBuilder renders retrieved notes and recent history into a single
// prompt-ready string. It does not bound the overall output size; the
// completion provider's context window is the caller's concern.
type ContextBuilder struct {
	now func() time.Time
}

func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{now: time.Now}
}

// IsReviewQuery reports whether the query asks for a temporal review of
// the trailing week.
func IsReviewQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range reviewKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return strings.Contains(q, "review") && strings.Contains(q, "week")
}

// FilterForReview narrows results to the trailing seven days when the
// query is a review request. An empty outcome is fine; the generator
// handles "no relevant memories" gracefully.
func (b *ContextBuilder) FilterForReview(query string, results []core.SearchResult) []core.SearchResult {
	if !IsReviewQuery(query) {
		return results
	}

	cutoff := b.now().Add(-reviewWindow)
	filtered := make([]core.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Note.CreatedAt.After(cutoff) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Build assembles the memory blocks plus the trailing conversation turns.
func (b *ContextBuilder) Build(query string, results []core.SearchResult, history []core.ConversationTurn) string {
	var sb strings.Builder

	if len(results) == 0 {
		sb.WriteString("No stored memories matched this query.\n")
	} else {
		sb.WriteString("=== RELEVANT MEMORIES ===\n")
		for i, r := range results {
			sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, r.Note.Title))
			writeNoteBlock(&sb, r.Note)
		}
	}

	if turns := lastTurns(history, historyWindow); len(turns) > 0 {
		sb.WriteString("\n=== RECENT CONVERSATION ===\n")
		sb.WriteString(RenderHistory(turns))
	}

	return sb.String()
}

func writeNoteBlock(sb *strings.Builder, note core.Note) {
	if note.Category != "" || note.NoteType != "" {
		sb.WriteString(fmt.Sprintf("   Category: %s | Type: %s\n", note.Category, note.NoteType))
	}
	sb.WriteString(fmt.Sprintf("   Created: %s\n", note.CreatedAt.Format("2006-01-02")))
	if note.Summary != "" {
		sb.WriteString("   Summary: " + note.Summary + "\n")
	}
	if excerpt := truncateExcerpt(note.Body, excerptBudget); excerpt != "" {
		sb.WriteString("   Excerpt: " + excerpt + "\n")
	}
	if len(note.Tags) > 0 {
		sb.WriteString("   Tags: " + strings.Join(note.Tags, ", ") + "\n")
	}
	if note.Task != nil {
		if len(note.Task.ActionItems) > 0 {
			sb.WriteString("   Action items: " + strings.Join(note.Task.ActionItems, "; ") + "\n")
		}
		if len(note.Task.NextSteps) > 0 {
			sb.WriteString("   Next steps: " + strings.Join(note.Task.NextSteps, "; ") + "\n")
		}
		if note.Task.Priority != "" {
			sb.WriteString("   Priority: " + note.Task.Priority + "\n")
		}
	}
}

// RenderHistory renders turns as "role: text" lines.
func RenderHistory(turns []core.ConversationTurn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func lastTurns(history []core.ConversationTurn, n int) []core.ConversationTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func truncateExcerpt(body string, budget int) string {
	body = strings.TrimSpace(body)
	if len(body) <= budget {
		return body
	}
	return body[:budget] + truncationMark
}
