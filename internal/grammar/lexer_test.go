package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizePositions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Token
	}{
		{
			name:   "single pair",
			source: "Color: Red",
			want: []Token{
				{Kind: TokenWord, Text: "Color", Pos: Position{Line: 1, Column: 1, Offset: 0}},
				{Kind: TokenColon, Text: ":", Pos: Position{Line: 1, Column: 6, Offset: 5}},
				{Kind: TokenWord, Text: "Red", Pos: Position{Line: 1, Column: 8, Offset: 7}},
				{Kind: TokenEOF, Pos: Position{Line: 1, Column: 11, Offset: 10}},
			},
		},
		{
			name:   "comment and newline",
			source: "# animals\n1 then",
			want: []Token{
				{Kind: TokenWord, Text: "1", Pos: Position{Line: 2, Column: 1, Offset: 10}},
				{Kind: TokenWord, Text: "then", Pos: Position{Line: 2, Column: 3, Offset: 12}},
				{Kind: TokenEOF, Pos: Position{Line: 2, Column: 7, Offset: 16}},
			},
		},
		{
			name:   "columns count runes",
			source: "Цвет: Красный",
			want: []Token{
				{Kind: TokenWord, Text: "Цвет", Pos: Position{Line: 1, Column: 1, Offset: 0}},
				{Kind: TokenColon, Text: ":", Pos: Position{Line: 1, Column: 5, Offset: 8}},
				{Kind: TokenWord, Text: "Красный", Pos: Position{Line: 1, Column: 7, Offset: 10}},
				{Kind: TokenEOF, Pos: Position{Line: 1, Column: 14, Offset: 24}},
			},
		},
		{
			name:   "empty",
			source: "",
			want:   []Token{{Kind: TokenEOF, Pos: Position{Line: 1, Column: 1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeStrings(t *testing.T) {
	got, err := Tokenize(`"say \"hi\"\n" "tab\there" "back\\slash"`)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, TokenString, got[0].Kind)
	assert.Equal(t, "say \"hi\"\n", got[0].Text)
	assert.Equal(t, "tab\there", got[1].Text)
	assert.Equal(t, `back\slash`, got[2].Text)
}

func TestTokenizeWordPunctuation(t *testing.T) {
	got, err := Tokenize("semi-aquatic x_y 3.5 don't")
	require.NoError(t, err)

	var words []string
	for _, tok := range got[:len(got)-1] {
		words = append(words, tok.Text)
	}
	assert.Equal(t, []string{"semi-aquatic", "x_y", "3.5", "don't"}, words)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		line    int
		column  int
		message string
	}{
		{"unexpected character", "1 then A: @", 1, 11, "unexpected character '@'"},
		{"unterminated at end", `advice Color: "What`, 1, 15, "unterminated string"},
		{"newline in string", "tip A: \"one\ntwo\"", 1, 8, "unterminated string"},
		{"invalid escape", `tip A: "x\q"`, 1, 10, `invalid escape sequence \q`},
		{"invalid utf8", "A: \xff", 1, 4, "invalid UTF-8 encoding"},
		{"error on later line", "1 then A: B\n  $", 2, 3, "unexpected character '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.source)
			require.Error(t, err)

			var serr *SyntaxError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.line, serr.Line)
			assert.Equal(t, tt.column, serr.Column)
			assert.Equal(t, tt.message, serr.Message)
		})
	}
}
