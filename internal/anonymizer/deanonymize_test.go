package anonymizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veil-labs/veil/internal/entity"
)

func TestDeanonymize(t *testing.T) {
	ctx := context.Background()
	m := EntityMap{entity.TypeEmail: {"a@b.com"}}

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "in range",
			text: "<PII_EMAIL_1>",
			want: "a@b.com",
		},
		{
			name: "ordinal out of range left verbatim",
			text: "<PII_EMAIL_5>",
			want: "<PII_EMAIL_5>",
		},
		{
			name: "unknown category left verbatim",
			text: "<PII_PASSPORT_NUMBER_1>",
			want: "<PII_PASSPORT_NUMBER_1>",
		},
		{
			name: "mixed resolved and unresolved",
			text: "from <PII_EMAIL_1> to <PII_EMAIL_2>",
			want: "from a@b.com to <PII_EMAIL_2>",
		},
		{
			name: "zero ordinal left verbatim",
			text: "<PII_EMAIL_0>",
			want: "<PII_EMAIL_0>",
		},
		{
			name: "not a placeholder",
			text: "<PII_EMAIL_> and <pii_email_1>",
			want: "<PII_EMAIL_> and <pii_email_1>",
		},
		{
			name: "no placeholders",
			text: "plain text",
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deanonymize(ctx, tt.text, m))
		})
	}
}

func TestDeanonymizeNilMap(t *testing.T) {
	got := Deanonymize(context.Background(), "<PII_EMAIL_1>", nil)
	assert.Equal(t, "<PII_EMAIL_1>", got)
}
