package anonymizer

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-labs/veil/internal/entity"
	veilotel "github.com/veil-labs/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veil-labs/veil/internal/anonymizer")

// Placeholder renders the token placeholder for a category tag and
// 1-based ordinal, e.g. Placeholder("EMAIL", 1) -> "<PII_EMAIL_1>".
func Placeholder(t entity.Type, ordinal int) string {
	return fmt.Sprintf("<PII_%s_%d>", t, ordinal)
}

// Anonymize rewrites text by replacing each entity span with its token
// placeholder and returns the tokenized text plus the entity map built
// during the pass.
//
// entities are expected sorted ascending by start, as the entity store
// keeps them. Entities overlapping an earlier span are skipped and
// offsets are clamped to the text bounds. Identical literal values
// within a category share one ordinal; the map is rebuilt fresh on
// every call, so re-running with a changed entity list can reassign
// ordinals.
func Anonymize(ctx context.Context, text string, entities []entity.Entity) (string, EntityMap) {
	_, span := tracer.Start(ctx, "anonymizer.anonymize")
	defer span.End()

	m := EntityMap{}
	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	for _, e := range entities {
		// Span-only dedup in the store admits overlapping spans, and an
		// imported list can carry offsets past the end of this text. Skip
		// entities behind the cursor and clamp the rest rather than panic
		// on a bad slice.
		start, end := e.Start, e.End
		if start < cursor {
			continue
		}
		if start > len(text) {
			start = len(text)
		}
		if end > len(text) {
			end = len(text)
		}
		if end < start {
			end = start
		}
		b.WriteString(text[cursor:start])
		b.WriteString(Placeholder(e.Type, m.Ordinal(e.Type, e.Text)))
		cursor = end
	}
	b.WriteString(text[cursor:])

	span.SetAttributes(
		attribute.Int("pii.entity_count", len(entities)),
		attribute.Int("pii.category_count", len(m)),
	)

	return b.String(), m
}
