package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/llm"
	"github.com/satyashield/satyashield/internal/models"
)

const verdictSystemPrompt = `You are a fact-checking expert. Decide whether the CLAIM is supported by the EVIDENCE.

Rules:
- Judge the core claim. Minor differences in numbers, dates or wording must not turn "real" into "fake".
- Use "fake" only when the evidence explicitly contradicts the core claim.
- Use "unsure" when the evidence neither supports nor contradicts it.

Respond with a JSON object only:
{"label": "real|fake|unsure", "confidence": 0.0-1.0, "explanation": "one or two sentences"}`

// authoritative matches source domains from government, academic, space agency and wire services.
var authoritative = regexp.MustCompile(`(?i)(\.gov|\.edu|\.mil|\.gov\.[a-z]{2}|\.nic\.in|\.ac\.[a-z]{2})$|nasa|isro|reuters|apnews|afp\.com|ptinews|who\.int`)

type rawVerdict struct {
	Label       string `json:"label"`
	Confidence  any    `json:"confidence"`
	Explanation string `json:"explanation"`
}

// parseVerdict extracts and validates a verdict from model output.
func parseVerdict(text string) (models.Verdict, bool) {
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return models.Verdict{}, false
	}
	var rv rawVerdict
	if err := json.Unmarshal(raw, &rv); err != nil {
		return models.Verdict{}, false
	}

	label := models.Label(strings.ToLower(strings.TrimSpace(rv.Label)))
	if !label.Valid() {
		return models.Verdict{}, false
	}
	conf, ok := coerceConfidence(rv.Confidence)
	if !ok {
		return models.Verdict{}, false
	}
	return models.Verdict{Label: label, Confidence: conf, Explanation: strings.TrimSpace(rv.Explanation)}, true
}

func coerceConfidence(v any) (float64, bool) {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

// heuristicVerdict classifies from source authority alone.
func heuristicVerdict(sources []models.EvidenceRecord) models.Verdict {
	count := 0
	for _, s := range sources {
		if authoritative.MatchString(s.Source) {
			count++
		}
	}
	need := min(2, int(math.Ceil(float64(len(sources))/3)))
	if count >= need {
		return models.Verdict{
			Label:       models.LabelReal,
			Confidence:  math.Min(0.85, 0.5+0.1*float64(count)),
			Explanation: fmt.Sprintf("%d authoritative sources report this claim", count),
		}
	}
	return models.Verdict{
		Label:       models.LabelUnsure,
		Confidence:  0.35,
		Explanation: "Sources could not be assessed automatically",
	}
}

func (e *Engine) judge(ctx context.Context, claim, summary string, sources []models.EvidenceRecord) (models.Verdict, models.ModelUsed) {
	prompt := fmt.Sprintf("CLAIM: %s\n\nEVIDENCE SUMMARY: %s\n\nEVIDENCE:\n%s",
		strings.TrimSpace(claim), summary, evidenceBlock(sources, e.cfg.EvidenceChars))

	if text, err := e.llm.ChatComplete(ctx, verdictSystemPrompt, prompt, e.cfg.VerdictMaxTokens); err == nil {
		if v, ok := parseVerdict(text); ok {
			return v, models.ModelPrimary
		}
		log.Warn().Msg("Primary verdict unparseable")
	}
	if text, err := e.llm.Generate(ctx, verdictSystemPrompt+"\n\n"+prompt, e.cfg.VerdictMaxTokens); err == nil {
		if v, ok := parseVerdict(text); ok {
			return v, models.ModelFallback
		}
		log.Warn().Msg("Fallback verdict unparseable")
	}

	log.Info().Msg("Using source-authority heuristic for verdict")
	return heuristicVerdict(sources), models.ModelNone
}
