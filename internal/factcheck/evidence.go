package factcheck

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/satyashield/satyashield/internal/models"
)

const (
	minSummaryRunes  = 20
	synthesizedCount = 3
)

const summarySystemPrompt = `You are a neutral news analyst. Summarise what the sources below report in 3 to 5 sentences.
Do not judge whether any claim is true. Do not add facts that are not in the sources.`

// evidenceBlock concatenates title and snippet per source, cut to limit runes.
func evidenceBlock(sources []models.EvidenceRecord, limit int) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s", i+1, s.Title)
		if s.Source != "" {
			fmt.Fprintf(&b, " (%s)", s.Source)
		}
		if s.Snippet != "" {
			b.WriteString(": ")
			b.WriteString(s.Snippet)
		}
		b.WriteString("\n")
	}
	return truncateRunes(b.String(), limit)
}

// synthesizeSummary builds a summary from the first records when no model answered.
func synthesizeSummary(sources []models.EvidenceRecord) string {
	n := min(len(sources), synthesizedCount)
	parts := make([]string, 0, n)
	for _, s := range sources[:n] {
		part := strings.TrimSpace(s.Title)
		if s.Snippet != "" {
			part = strings.TrimSuffix(part, ".") + ": " + s.Snippet
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

func (e *Engine) summarise(ctx context.Context, sources []models.EvidenceRecord) (string, models.ModelUsed) {
	prompt := "Sources:\n" + evidenceBlock(sources, e.cfg.EvidenceChars)

	if text, err := e.llm.ChatComplete(ctx, summarySystemPrompt, prompt, e.cfg.SummaryMaxTokens); err == nil && usable(text) {
		return strings.TrimSpace(text), models.ModelPrimary
	}
	if text, err := e.llm.Generate(ctx, summarySystemPrompt+"\n\n"+prompt, e.cfg.SummaryMaxTokens); err == nil && usable(text) {
		return strings.TrimSpace(text), models.ModelFallback
	}
	return synthesizeSummary(sources), models.ModelNone
}

func usable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minSummaryRunes
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
