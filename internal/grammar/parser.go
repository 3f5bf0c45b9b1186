// Package grammar recognises the knowledge-base source language.
//
//	file        = { declaration } EOF
//	declaration = entry | advice | change | tip
//	entry       = NUMBER [ "if" pair { "and" pair } ] "then" pair
//	advice      = "advice" pair
//	change      = "change" pair
//	tip         = "tip" pair
//	pair        = word ":" word
//	word        = WORD | STRING
//
// Keywords are case-insensitive and reserved unless quoted. `#` starts a
// comment that runs to the end of the line.
package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	kwIf     = "if"
	kwAnd    = "and"
	kwThen   = "then"
	kwAdvice = "advice"
	kwChange = "change"
	kwTip    = "tip"
)

var keywords = []string{kwIf, kwAnd, kwThen, kwAdvice, kwChange, kwTip}

func isKeyword(word string) bool {
	for _, kw := range keywords {
		if strings.EqualFold(word, kw) {
			return true
		}
	}
	return false
}

// Parse recognises src and returns its declarations in source order.
// The whole input is consumed; any violation returns a *SyntaxError and no
// declarations.
func Parse(src string) ([]Declaration, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	return p.parseFile()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atKeyword(kw string) bool {
	tok := p.peek()
	return tok.Kind == TokenWord && strings.EqualFold(tok.Text, kw)
}

func (p *parser) errorf(tok Token, format string, args ...interface{}) *SyntaxError {
	return newSyntaxError(tok.Pos, fmt.Sprintf(format, args...))
}

func (p *parser) expected(what string) *SyntaxError {
	tok := p.peek()
	return p.errorf(tok, "expected %s, found %s", what, tok.describe())
}

func (p *parser) parseFile() ([]Declaration, error) {
	var decls []Declaration
	for p.peek().Kind != TokenEOF {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func (p *parser) parseDeclaration() (Declaration, error) {
	tok := p.peek()

	switch {
	case tok.Kind == TokenWord && isNumber(tok.Text):
		return p.parseEntry()
	case p.atKeyword(kwAdvice):
		return p.parsePrompt(KindAdvice)
	case p.atKeyword(kwChange):
		return p.parsePrompt(KindChange)
	case p.atKeyword(kwTip):
		return p.parsePrompt(KindTip)
	}

	return Declaration{}, p.expected(`entry number, "advice", "change" or "tip"`)
}

func (p *parser) parseEntry() (Declaration, error) {
	numTok := p.advance()
	id, err := strconv.Atoi(numTok.Text)
	if err != nil {
		return Declaration{}, p.errorf(numTok, "entry number %s is out of range", numTok.Text)
	}

	decl := Declaration{Kind: KindEntry, Pos: numTok.Pos, ID: id}

	if p.atKeyword(kwIf) {
		p.advance()
		for {
			pair, err := p.parsePair(false)
			if err != nil {
				return Declaration{}, err
			}
			decl.Attributes = append(decl.Attributes, pair)

			if !p.atKeyword(kwAnd) {
				break
			}
			p.advance()
		}
		if !p.atKeyword(kwThen) {
			return Declaration{}, p.expected(`"and" or "then"`)
		}
	} else if !p.atKeyword(kwThen) {
		return Declaration{}, p.expected(`"if" or "then"`)
	}
	p.advance()

	pair, err := p.parsePair(false)
	if err != nil {
		return Declaration{}, err
	}
	decl.Pair = pair

	return decl, nil
}

func (p *parser) parsePrompt(kind Kind) (Declaration, error) {
	kwTok := p.advance()

	pair, err := p.parsePair(true)
	if err != nil {
		return Declaration{}, err
	}

	return Declaration{Kind: kind, Pos: kwTok.Pos, Pair: pair}, nil
}

// parsePair reads `word : word`. When text is set the right-hand side is free
// text and may be empty.
func (p *parser) parsePair(text bool) (Pair, error) {
	start := p.peek().Pos

	category, err := p.parseWord("category name", false)
	if err != nil {
		return Pair{}, err
	}

	if p.peek().Kind != TokenColon {
		return Pair{}, p.expected(`":"`)
	}
	p.advance()

	what := "value"
	if text {
		what = "text"
	}
	value, err := p.parseWord(what, text)
	if err != nil {
		return Pair{}, err
	}

	return Pair{Category: category, Value: value, Pos: start}, nil
}

func (p *parser) parseWord(what string, allowEmpty bool) (string, error) {
	tok := p.peek()

	switch tok.Kind {
	case TokenWord:
		if isKeyword(tok.Text) {
			return "", p.errorf(tok, "expected %s, found keyword %q (quote it to use it as a name)",
				what, strings.ToLower(tok.Text))
		}
	case TokenString:
		if tok.Text == "" && !allowEmpty {
			return "", p.errorf(tok, "%s must not be empty", what)
		}
	default:
		return "", p.expected(what)
	}

	p.advance()
	return tok.Text, nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
