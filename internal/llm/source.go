package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-labs/veil/internal/entity"
)

// Source is the external entity source: one provider, one model, one
// outstanding request per detection cycle.
type Source struct {
	provider Provider
}

// NewSource wraps a provider as an entity source.
func NewSource(p Provider) *Source {
	return &Source{provider: p}
}

// Detect asks the provider for entity candidates in text and normalizes
// them into the shared entity shape. An unparseable response (no JSON
// array found in the assistant text) yields an empty list and nil error;
// transport and API failures are returned as errors.
func (s *Source) Detect(ctx context.Context, text string) ([]entity.Entity, error) {
	ctx, span := tracer.Start(ctx, "llm.detect_entities")
	defer span.End()

	reply, err := s.provider.Complete(ctx, entityPrompt+text)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	candidates := parseCandidates(reply)
	normalized := NormalizeCandidates(text, candidates)

	span.SetAttributes(
		attribute.String("gen_ai.system", s.provider.Name()),
		attribute.Int("pii.candidate_count", len(candidates)),
		attribute.Int("pii.entity_count", len(normalized)),
	)

	return normalized, nil
}

// Candidate is the Entity-shaped object expected from the model.
type Candidate struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// parseCandidates extracts and decodes the first top-level JSON array in
// the assistant text. No array, or an array that fails to decode, yields
// an empty list without error.
func parseCandidates(reply string) []Candidate {
	arr := ExtractJSONArray(reply)
	if arr == "" {
		return nil
	}
	var candidates []Candidate
	if err := json.Unmarshal([]byte(arr), &candidates); err != nil {
		return nil
	}
	return candidates
}

// ExtractJSONArray returns the first top-level [...] substring of s,
// bracket-matched with awareness of JSON strings and escapes. Returns ""
// when no balanced array is found. This is a heuristic, not full JSON
// parsing: it tolerates prose around the array in a model reply.
func ExtractJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// NormalizeCandidates converts model candidates into entities anchored
// in text. A candidate whose offsets point at its literal text is kept
// as-is; otherwise every non-overlapping occurrence of the literal text
// is emitted instead, since model-reported offsets are unreliable.
// Candidates with blank text are dropped.
func NormalizeCandidates(text string, candidates []Candidate) []entity.Entity {
	var out []entity.Entity
	for _, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		tag := entity.Normalize(c.Type)
		if tag == "" {
			continue
		}

		if c.Start >= 0 && c.End <= len(text) && c.Start < c.End && text[c.Start:c.End] == c.Text {
			out = append(out, entity.Entity{Text: c.Text, Type: tag, Start: c.Start, End: c.End})
			continue
		}

		for from := 0; ; {
			idx := strings.Index(text[from:], c.Text)
			if idx < 0 {
				break
			}
			start := from + idx
			out = append(out, entity.Entity{Text: c.Text, Type: tag, Start: start, End: start + len(c.Text)})
			from = start + len(c.Text)
		}
	}
	return out
}
