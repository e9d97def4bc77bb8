package vars

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkString
	tkInt
	tkIdent
	tkOp
)

type token struct {
	kind tokenKind
	// text holds the operator, identifier, digits, or decoded string body.
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tkEOF:
		return "end of expression"
	case tkString:
		return fmt.Sprintf("string %q", t.text)
	case tkInt:
		return "integer " + t.text
	case tkIdent:
		return "identifier " + t.text
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

var twoCharOps = map[string]bool{"==": true, "!=": true, "<=": true, ">=": true, "&&": true, "||": true}

const oneCharOps = "!-+*/%<>().,"

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"' || c == '\'':
			s, end, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tkString, text: s, pos: i})
			i = end
		case isDigit(c):
			j := i
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tkInt, text: src[i:j], pos: i})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tkIdent, text: src[i:j], pos: i})
			i = j
		default:
			if i+1 < len(src) && twoCharOps[src[i:i+2]] {
				toks = append(toks, token{kind: tkOp, text: src[i : i+2], pos: i})
				i += 2
				continue
			}
			if strings.IndexByte(oneCharOps, c) < 0 {
				return nil, &ExpressionError{Expr: src, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind: tkOp, text: string(c), pos: i})
			i++
		}
	}
	return append(toks, token{kind: tkEOF, pos: len(src)}), nil
}

// lexString decodes the quoted literal starting at src[start] and returns it
// with the offset just past the closing quote.
func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, &ExpressionError{Expr: src, Pos: i, Msg: "unterminated escape"}
			}
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"', '\'':
				b.WriteByte(src[i])
			default:
				return "", 0, &ExpressionError{Expr: src, Pos: i - 1, Msg: fmt.Sprintf("unknown escape \\%c", src[i])}
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, &ExpressionError{Expr: src, Pos: start, Msg: "unterminated string"}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
