package visibility

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type scanner struct {
	src    string
	pos    int
	tokens []token
}

func scan(src string) ([]token, error) {
	s := &scanner{src: src}
	for s.pos < len(s.src) {
		if err := s.next(); err != nil {
			return nil, err
		}
	}
	return s.tokens, nil
}

func (s *scanner) emit(kind tokenKind, text string, start int) {
	s.tokens = append(s.tokens, token{kind: kind, text: text, pos: start})
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func (s *scanner) next() error {
	start := s.pos
	ch := s.src[s.pos]
	switch {
	case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		s.pos++
	case ch == '(':
		s.pos++
		s.emit(tokLParen, "(", start)
	case ch == ')':
		s.pos++
		s.emit(tokRParen, ")", start)
	case ch == '&' || ch == '|':
		if s.peek(1) != ch {
			return &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected %q; use %q", ch, string([]byte{ch, ch}))}
		}
		s.pos += 2
		if ch == '&' {
			s.emit(tokAnd, "&&", start)
		} else {
			s.emit(tokOr, "||", start)
		}
	case ch == '=' || ch == '!' || ch == '<' || ch == '>':
		if s.peek(1) == '=' {
			s.pos += 2
			s.emit(tokOp, s.src[start:s.pos], start)
			return nil
		}
		s.pos++
		switch ch {
		case '!':
			s.emit(tokNot, "!", start)
		case '=':
			return &SyntaxError{Pos: start, Msg: `unexpected "="; use "=="`}
		default:
			s.emit(tokOp, string(ch), start)
		}
	case ch == '"' || ch == '\'':
		return s.quoted(ch)
	default:
		s.word()
	}
	return nil
}

func (s *scanner) quoted(quote byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote:
			s.pos++
			s.emit(tokString, unescape(s.src[start+1:s.pos-1]), start)
			return nil
		}
		s.pos++
	}
	return &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

func (s *scanner) word() {
	start := s.pos
	for s.pos < len(s.src) && !strings.ContainsRune(" \t\r\n()!=<>&|\"'", rune(s.src[s.pos])) {
		s.pos++
	}
	text := s.src[start:s.pos]
	switch strings.ToLower(text) {
	case "true", "false":
		s.emit(tokBool, strings.ToLower(text), start)
	case "null", "nil":
		s.emit(tokNull, "null", start)
	default:
		if numeric(text) {
			s.emit(tokNumber, text, start)
			return
		}
		s.emit(tokIdent, text, start)
	}
}

func numeric(text string) bool {
	if !strings.ContainsAny(text[:1], "0123456789+-.") {
		return false
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

// unescape drops the backslash in front of any escaped character.
func unescape(body string) string {
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
