package detector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-labs/veil/internal/entity"
)

func TestDetect(t *testing.T) {
	d := MustNew()
	ctx := context.Background()

	tests := []struct {
		name      string
		text      string
		wantTypes []entity.Type
		wantTexts []string
	}{
		{
			name:      "russian phone",
			text:      "Call me at +7 (495) 123-45-67",
			wantTypes: []entity.Type{entity.TypePhoneNumber},
			wantTexts: []string{"+7 (495) 123-45-67"},
		},
		{
			name:      "email",
			text:      "Contact me at user@example.com please",
			wantTypes: []entity.Type{entity.TypeEmail},
			wantTexts: []string{"user@example.com"},
		},
		{
			name:      "credit card",
			text:      "Card: 4111 1111 1111 1111",
			wantTypes: []entity.Type{entity.TypeCreditCardNumber},
			wantTexts: []string{"4111 1111 1111 1111"},
		},
		{
			name:      "labeled INN case-insensitive",
			text:      "мой инн 123456789012",
			wantTypes: []entity.Type{entity.TypeNationalIDNumber},
			wantTexts: []string{"инн 123456789012"},
		},
		{
			name:      "month-name date",
			text:      "Встреча 15 января 2024 года",
			wantTypes: []entity.Type{entity.TypeDate},
			wantTexts: []string{"15 января 2024"},
		},
		{
			name:      "url",
			text:      "see https://example.com/page?id=1 for details",
			wantTypes: []entity.Type{entity.TypeURL},
			wantTexts: []string{"https://example.com/page?id=1"},
		},
		{
			name:      "snils",
			text:      "СНИЛС 123-456-789 01",
			wantTypes: []entity.Type{entity.TypeInsuranceNumber},
			wantTexts: []string{"123-456-789 01"},
		},
		{
			name: "no PII",
			text: "Сегодня мы говорили о тревоге и сне.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(ctx, tt.text, nil)
			require.Len(t, got, len(tt.wantTypes))
			for i := range got {
				assert.Equal(t, tt.wantTypes[i], got[i].Type)
				assert.Equal(t, tt.wantTexts[i], got[i].Text)
				assert.Equal(t, tt.wantTexts[i], tt.text[got[i].Start:got[i].End])
			}
		})
	}
}

// Overlapping candidates in different categories: only the one from the
// earlier-registered recognizer is accepted. "10.20.30.40" is claimed by
// the IP recognizer; the date recognizer's "10.20.30" candidate overlaps
// and is rejected.
func TestDetectFirstAcceptedWins(t *testing.T) {
	d := MustNew()

	got := d.Detect(context.Background(), "server 10.20.30.40 answered", nil)

	require.Len(t, got, 1)
	assert.Equal(t, entity.TypeIPAddress, got[0].Type)
	assert.Equal(t, "10.20.30.40", got[0].Text)
}

// With the IP category disabled, the same text falls through to the
// later-registered date recognizer.
func TestDetectEnabledCategories(t *testing.T) {
	d := MustNew()

	got := d.Detect(context.Background(), "server 10.20.30.40 answered", []entity.Type{entity.TypeDate})

	require.Len(t, got, 1)
	assert.Equal(t, entity.TypeDate, got[0].Type)
}

// An empty (non-nil) category set disables every recognizer; only nil
// means all categories.
func TestDetectEmptyEnabledSet(t *testing.T) {
	d := MustNew()

	got := d.Detect(context.Background(), "mail a@b.com now", []entity.Type{})
	assert.Empty(t, got)
}

func TestDetectNonOverlapAndSorted(t *testing.T) {
	d := MustNew()
	text := "Пациент: ivan@example.com, тел. +7 (495) 123-45-67, карта 4111 1111 1111 1111, встреча 15 января."

	got := d.Detect(context.Background(), text, nil)
	require.NotEmpty(t, got)

	for i := range got {
		assert.Equal(t, got[i].Text, text[got[i].Start:got[i].End])
		if i == 0 {
			continue
		}
		assert.LessOrEqual(t, got[i-1].Start, got[i].Start, "sorted by start")
		assert.LessOrEqual(t, got[i-1].End, got[i].Start, "non-overlapping")
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := MustNew()
	text := "ivan@example.com и +7 (495) 123-45-67"

	first := d.Detect(context.Background(), text, nil)
	second := d.Detect(context.Background(), text, nil)
	assert.Equal(t, first, second)
}
