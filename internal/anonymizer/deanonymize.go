package anonymizer

import (
	"context"
	"regexp"
	"strconv"

	"github.com/veil-labs/veil/internal/entity"
)

// placeholderRe recognizes the token placeholder grammar: TYPE is one or
// more word characters, ordinal one or more decimal digits.
var placeholderRe = regexp.MustCompile(`<PII_(\w+)_(\d+)>`)

// Deanonymize restores original values in tokenized text using the
// entity map. Placeholders whose category is unknown or whose ordinal is
// out of range are left verbatim — fail-soft, a partial map never
// destroys the surrounding text or raises an error.
func Deanonymize(ctx context.Context, text string, m EntityMap) string {
	_, span := tracer.Start(ctx, "anonymizer.deanonymize")
	defer span.End()

	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		ordinal, err := strconv.Atoi(groups[2])
		if err != nil {
			return match
		}
		value, ok := m.Lookup(entity.Type(groups[1]), ordinal)
		if !ok {
			return match
		}
		return value
	})
}
