package normalizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

func TestNormalizeText(t *testing.T) {
	n := New(DefaultOptions(), nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "currency with cents",
			input: "It costs $12.34 today.",
			want:  "It costs twelve dollars and thirty-four cents today.",
		},
		{
			name:  "whole dollars",
			input: "She paid $5 for it.",
			want:  "She paid five dollars for it.",
		},
		{
			name:  "percent",
			input: "About 42% of users agreed.",
			want:  "About forty-two percent of users agreed.",
		},
		{
			name:  "abbreviated date",
			input: "Published Jan. 1, 2024 in print.",
			want:  "Published January first, two thousand and twenty-four in print.",
		},
		{
			name:  "standalone ordinal",
			input: "He finished 3rd overall.",
			want:  "He finished third overall.",
		},
		{
			name:  "compound ordinal",
			input: "the 21st century",
			want:  "the twenty-first century",
		},
		{
			name:  "no match unchanged",
			input: "Nothing to normalize here.",
			want:  "Nothing to normalize here.",
		},
		{
			name:  "multiple in one sentence",
			input: "Save 10% on $20 items.",
			want:  "Save ten percent on twenty dollars items.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.NormalizeText(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTextDisabledRules(t *testing.T) {
	n := New(Options{Percent: true}, nil)

	got, err := n.NormalizeText("Pay $5 or save 10%.")
	require.NoError(t, err)
	assert.Equal(t, "Pay $5 or save ten percent.", got)
}

func TestOrdinalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"one", "first"},
		{"two", "second"},
		{"three", "third"},
		{"four", "fourth"},
		{"five", "fifth"},
		{"nine", "ninth"},
		{"twelve", "twelfth"},
		{"twenty", "twentieth"},
		{"twenty-one", "twenty-first"},
		{"one hundred", "one hundredth"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ordinalize(tt.in), tt.in)
	}
}

func TestApply(t *testing.T) {
	doc := document.New(document.FormatMarkdown, "test.md")
	doc.Append("It costs $3.50 here.", document.BlockMetadata{Type: document.BlockParagraph})
	doc.Append("fmt.Println(42)", document.BlockMetadata{Type: document.BlockCode})
	doc.Append("Plain text.", document.BlockMetadata{Type: document.BlockParagraph})
	doc.Seal()

	n := New(DefaultOptions(), nil)
	fs, err := n.Apply(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "normalizer", fs.Filter)
	assert.Equal(t, 2, fs.Blocks) // 代码块被跳过
	assert.Equal(t, 1, fs.Changed)
	assert.Equal(t, "It costs three dollars and fifty cents here.", doc.Blocks[0].Content)
	assert.Equal(t, "fmt.Println(42)", doc.Blocks[1].Content)
	assert.Equal(t, "Plain text.", doc.Blocks[2].Content)
}

func TestApplyIdempotent(t *testing.T) {
	doc := document.New(document.FormatMarkdown, "test.md")
	doc.Append("Save 10% on $20 items by Jan. 1, 2024.", document.BlockMetadata{Type: document.BlockParagraph})
	doc.Seal()

	n := New(DefaultOptions(), nil)
	_, err := n.Apply(context.Background(), doc)
	require.NoError(t, err)
	first := doc.Blocks[0].Content

	fs, err := n.Apply(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 0, fs.Changed)
	assert.Equal(t, first, doc.Blocks[0].Content)
}

func TestApplyCancelled(t *testing.T) {
	doc := document.New(document.FormatMarkdown, "test.md")
	doc.Append("text", document.BlockMetadata{Type: document.BlockParagraph})
	doc.Seal()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := New(DefaultOptions(), nil)
	_, err := n.Apply(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}
