package grammar

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind identifies the lexical class of a token
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenWord
	TokenString
	TokenColon
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenWord:
		return "word"
	case TokenString:
		return "string"
	case TokenColon:
		return `":"`
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexeme. Text holds the decoded value: quotes and escapes are
// already removed from strings.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

func (t Token) describe() string {
	switch t.Kind {
	case TokenWord:
		if isKeyword(t.Text) {
			return fmt.Sprintf("keyword %q", strings.ToLower(t.Text))
		}
		return fmt.Sprintf("word %q", t.Text)
	case TokenString:
		return fmt.Sprintf("string %q", t.Text)
	}
	return t.Kind.String()
}

const wordPunctuation = "_-.'/?!"

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) ||
		strings.ContainsRune(wordPunctuation, r)
}

// Tokenize splits src into tokens. The result always ends with a TokenEOF
// positioned just past the last character.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{t: newTracker(src)}

	var tokens []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	t *tracker
}

func (lx *lexer) peekRune() (rune, int) {
	return utf8.DecodeRuneInString(lx.t.src[lx.t.pos.Offset:])
}

func (lx *lexer) skipBlank() {
	inComment := false
	for !lx.t.done() {
		r, size := lx.peekRune()
		switch {
		case inComment && r != '\n':
		case r == '#':
			inComment = true
		case unicode.IsSpace(r):
			inComment = false
		default:
			return
		}
		lx.t.advance(r, size)
	}
}

func (lx *lexer) next() (Token, error) {
	lx.skipBlank()

	start := lx.t.mark()
	if lx.t.done() {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	r, size := lx.peekRune()
	switch {
	case r == ':':
		lx.t.advance(r, size)
		return Token{Kind: TokenColon, Text: ":", Pos: start}, nil
	case r == '"':
		return lx.lexString(start)
	case r == utf8.RuneError && size == 1:
		return Token{}, newSyntaxError(start, "invalid UTF-8 encoding")
	case isWordRune(r):
		return lx.lexWord(start), nil
	}

	return Token{}, newSyntaxError(start, fmt.Sprintf("unexpected character %q", r))
}

func (lx *lexer) lexWord(start Position) Token {
	for !lx.t.done() {
		r, size := lx.peekRune()
		if !isWordRune(r) {
			break
		}
		lx.t.advance(r, size)
	}
	return Token{
		Kind: TokenWord,
		Text: lx.t.src[start.Offset:lx.t.pos.Offset],
		Pos:  start,
	}
}

func (lx *lexer) lexString(start Position) (Token, error) {
	lx.t.advance('"', 1)

	var sb strings.Builder
	for {
		if lx.t.done() {
			return Token{}, newSyntaxError(start, "unterminated string")
		}

		r, size := lx.peekRune()
		switch r {
		case '\n', '\r':
			return Token{}, newSyntaxError(start, "unterminated string")
		case '"':
			lx.t.advance(r, size)
			return Token{Kind: TokenString, Text: sb.String(), Pos: start}, nil
		case '\\':
			escPos := lx.t.mark()
			lx.t.advance(r, size)
			if lx.t.done() {
				return Token{}, newSyntaxError(start, "unterminated string")
			}
			e, esize := lx.peekRune()
			switch e {
			case '"', '\\':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return Token{}, newSyntaxError(escPos, fmt.Sprintf("invalid escape sequence \\%c", e))
			}
			lx.t.advance(e, esize)
		default:
			if r == utf8.RuneError && size == 1 {
				return Token{}, newSyntaxError(lx.t.mark(), "invalid UTF-8 encoding")
			}
			sb.WriteRune(r)
			lx.t.advance(r, size)
		}
	}
}
