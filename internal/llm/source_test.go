package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-labs/veil/internal/entity"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare array",
			in:   `[{"text":"anna"}]`,
			want: `[{"text":"anna"}]`,
		},
		{
			name: "array surrounded by prose",
			in:   "Here are the entities:\n[{\"text\":\"anna\"}]\nLet me know!",
			want: `[{"text":"anna"}]`,
		},
		{
			name: "nested arrays stay balanced",
			in:   `result: [[1,2],[3]] trailing`,
			want: `[[1,2],[3]]`,
		},
		{
			name: "brackets inside strings ignored",
			in:   `[{"text":"a ] b","note":"x [ y"}]`,
			want: `[{"text":"a ] b","note":"x [ y"}]`,
		},
		{
			name: "escaped quote inside string",
			in:   `[{"text":"say \"hi]\" now"}]`,
			want: `[{"text":"say \"hi]\" now"}]`,
		},
		{
			name: "no array",
			in:   "I could not find any entities.",
			want: "",
		},
		{
			name: "unbalanced array",
			in:   `[{"text":"anna"}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONArray(tt.in))
		})
	}
}

func TestParseCandidates(t *testing.T) {
	got := parseCandidates(`Sure! [{"text":"anna","type":"PERSON","start":0,"end":4}] done`)
	require.Len(t, got, 1)
	assert.Equal(t, "anna", got[0].Text)

	// No array and undecodable array both yield the empty list silently.
	assert.Empty(t, parseCandidates("no entities here"))
	assert.Empty(t, parseCandidates(`["just", "strings", [)`))
	assert.Empty(t, parseCandidates(`[{"text": 1}, "mixed"]`))
}

func TestNormalizeCandidates(t *testing.T) {
	text := "anna met anna at the clinic"

	tests := []struct {
		name       string
		candidates []Candidate
		want       []entity.Entity
	}{
		{
			name:       "valid offsets kept",
			candidates: []Candidate{{Text: "anna", Type: "PERSON", Start: 0, End: 4}},
			want:       []entity.Entity{{Text: "anna", Type: entity.TypePerson, Start: 0, End: 4}},
		},
		{
			name:       "bad offsets recovered by occurrence search",
			candidates: []Candidate{{Text: "anna", Type: "PERSON", Start: 100, End: 104}},
			want: []entity.Entity{
				{Text: "anna", Type: entity.TypePerson, Start: 0, End: 4},
				{Text: "anna", Type: entity.TypePerson, Start: 9, End: 13},
			},
		},
		{
			name:       "lowercase label normalized",
			candidates: []Candidate{{Text: "the clinic", Type: "organization", Start: 17, End: 27}},
			want:       []entity.Entity{{Text: "the clinic", Type: entity.TypeOrganization, Start: 17, End: 27}},
		},
		{
			name:       "blank text dropped",
			candidates: []Candidate{{Text: "  ", Type: "PERSON", Start: 0, End: 2}},
			want:       nil,
		},
		{
			name:       "literal not in text dropped",
			candidates: []Candidate{{Text: "boris", Type: "PERSON", Start: 0, End: 5}},
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCandidates(text, tt.candidates))
		})
	}
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider("", "key", "")
	assert.ErrorIs(t, err, ErrUnconfigured)

	_, err = NewProvider("openai", "", "")
	assert.ErrorIs(t, err, ErrUnconfigured)

	_, err = NewProvider("mystery", "key", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	p, err := NewProvider("openai", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider("anthropic", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

// fakeProvider returns a canned assistant reply.
type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func TestSourceDetect(t *testing.T) {
	text := "anna called"
	src := NewSource(&fakeProvider{
		reply: `[{"text":"anna","type":"PERSON","start":0,"end":4}]`,
	})

	got, err := src.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.TypePerson, got[0].Type)
}

func TestSourceDetectUnparseableIsSilent(t *testing.T) {
	src := NewSource(&fakeProvider{reply: "sorry, I cannot help with that"})

	got, err := src.Detect(context.Background(), "anna called")
	require.NoError(t, err)
	assert.Empty(t, got)
}
