package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInteger
	tokReal
	tokString
	tokIdent
	tokPattern
	tokOp
)

type token struct {
	kind  tokenKind
	text  string
	pos   int
	space bool // whitespace or a comment precedes the token

	// Pattern tokens: name_, name__, name___ with an optional head.
	name   string
	blanks int
	head   string
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return strconv.Quote(t.text)
	}
	return fmt.Sprintf("%q", t.text)
}

// Longest operators first.
var operators = []string{
	"===", "=!=",
	":=", "==", "!=", "&&", "||", "/;",
	"[", "]", "{", "}", "(", ")", ",", ";",
	"=", "+", "-", "*", "/", "^", "<", ">", "!",
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	for {
		space, err := lx.skipSpace()
		if err != nil {
			return nil, err
		}
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tok.space = space
		lx.toks = append(lx.toks, tok)
		if tok.kind == tokEOF {
			return lx.toks, nil
		}
	}
}

func (lx *lexer) errorf(pos int, format string, args ...any) error {
	return newError(lx.src, pos, fmt.Sprintf(format, args...))
}

// skipSpace skips whitespace and (* nested *) comments.
func (lx *lexer) skipSpace() (bool, error) {
	skipped := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		case strings.HasPrefix(lx.src[lx.pos:], "(*"):
			start := lx.pos
			depth := 0
			for {
				if lx.pos >= len(lx.src) {
					return false, lx.errorf(start, "unterminated comment")
				}
				if strings.HasPrefix(lx.src[lx.pos:], "(*") {
					depth++
					lx.pos += 2
					continue
				}
				if strings.HasPrefix(lx.src[lx.pos:], "*)") {
					depth--
					lx.pos += 2
					if depth == 0 {
						break
					}
					continue
				}
				lx.pos++
			}
		default:
			return skipped, nil
		}
		skipped = true
	}
	return skipped, nil
}

func isIdentStart(r rune) bool { return r == '$' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func (lx *lexer) next() (token, error) {
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := lx.src[lx.pos]
	switch {
	case c >= '0' && c <= '9':
		return lx.number()
	case c == '"':
		return lx.str()
	case c == '_':
		return lx.pattern(start, "")
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if isIdentStart(r) {
		name := lx.ident()
		if lx.pos < len(lx.src) && lx.src[lx.pos] == '_' {
			return lx.pattern(start, name)
		}
		return token{kind: tokIdent, text: name, pos: start}, nil
	}
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}
	return token{}, lx.errorf(start, "unexpected character %q", r)
}

func (lx *lexer) ident() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}
		lx.pos += size
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) pattern(start int, name string) (token, error) {
	blanks := 0
	for lx.pos < len(lx.src) && lx.src[lx.pos] == '_' {
		blanks++
		lx.pos++
	}
	if blanks > 3 {
		return token{}, lx.errorf(start, "too many blanks in pattern")
	}
	head := ""
	if lx.pos < len(lx.src) {
		if r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:]); isIdentStart(r) {
			head = lx.ident()
		}
	}
	return token{
		kind:   tokPattern,
		text:   lx.src[start:lx.pos],
		pos:    start,
		name:   name,
		blanks: blanks,
		head:   head,
	}, nil
}

func (lx *lexer) number() (token, error) {
	start := lx.pos
	digits := func() {
		for lx.pos < len(lx.src) && lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '9' {
			lx.pos++
		}
	}
	digits()
	kind := tokInteger
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		kind = tokReal
		lx.pos++
		digits()
	}
	if lx.pos+1 < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		j := lx.pos + 1
		if lx.src[j] == '+' || lx.src[j] == '-' {
			j++
		}
		if j < len(lx.src) && lx.src[j] >= '0' && lx.src[j] <= '9' {
			kind = tokReal
			lx.pos = j
			digits()
		}
	}
	return token{kind: kind, text: lx.src[start:lx.pos], pos: start}, nil
}

func (lx *lexer) str() (token, error) {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
			continue
		case '"':
			lx.pos++
			s, err := strconv.Unquote(lx.src[start:lx.pos])
			if err != nil {
				return token{}, lx.errorf(start, "invalid string literal: %v", err)
			}
			return token{kind: tokString, text: s, pos: start}, nil
		}
		lx.pos++
	}
	return token{}, lx.errorf(start, "unterminated string")
}
