// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parse turns search text into a query.Query. It is the template
// expander the inspector hands every check's detect.resoto string to:
// template variables are substituted from the check environment, the text
// is lexed and parsed into the query algebra, and variable names are
// resolved against the requested section.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nburtsev/resoto/query"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenOp
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenTraversal
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenOp:
		return "operator"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenComma:
		return "','"
	case tokenTraversal:
		return "traversal"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	nav  query.Navigation
	pos  int
}

type lexer struct {
	src string
	pos int
}

// lexAll tokenizes src completely, returning ErrParse on the first
// character it cannot place.
func lexAll(src string) ([]token, error) {
	l := &lexer{src: src}
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokenEOF {
			return out, nil
		}
	}
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return query.ErrParse.New(fmt.Sprintf("%s at position %d in %q", msg, pos, l.src))
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n') {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case '[':
		l.pos++
		return token{kind: tokenLBracket, text: "[", pos: start}, nil
	case ']':
		l.pos++
		return token{kind: tokenRBracket, text: "]", pos: start}, nil
	case ',':
		l.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil
	case '=':
		if l.has("==") {
			l.pos += 2
			return token{kind: tokenOp, text: "==", pos: start}, nil
		}
		if l.has("=~") {
			l.pos += 2
			return token{kind: tokenOp, text: "=~", pos: start}, nil
		}
		return token{}, l.errorf(start, "unexpected '='")
	case '!':
		if l.has("!=") {
			l.pos += 2
			return token{kind: tokenOp, text: "!=", pos: start}, nil
		}
		if l.has("!~") {
			l.pos += 2
			return token{kind: tokenOp, text: "!~", pos: start}, nil
		}
		return token{}, l.errorf(start, "unexpected '!'")
	case '>':
		if l.has(">=") {
			l.pos += 2
			return token{kind: tokenOp, text: ">=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokenOp, text: ">", pos: start}, nil
	case '<':
		if l.has("<--") || l.has("<-[") {
			return l.lexInboundTraversal()
		}
		if l.has("<=") {
			l.pos += 2
			return token{kind: tokenOp, text: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokenOp, text: "<", pos: start}, nil
	case '-':
		if l.has("-->") || l.has("-[") {
			return l.lexOutboundTraversal()
		}
		return l.lexNumber()
	case '"', '\'':
		return l.lexString(c)
	}

	if c >= '0' && c <= '9' {
		return l.lexNumber()
	}
	if isIdentStart(c) {
		return l.lexIdent()
	}

	return token{}, l.errorf(start, "unexpected character %q", c)
}

func (l *lexer) has(prefix string) bool {
	return strings.HasPrefix(l.src[l.pos:], prefix)
}

// lexOutboundTraversal consumes "-->" or "-[a:b]->".
func (l *lexer) lexOutboundTraversal() (token, error) {
	start := l.pos
	if l.has("-->") {
		l.pos += 3
		return token{
			kind: tokenTraversal,
			text: "-->",
			nav:  query.NewNavigation(1, 1, "", query.DirectionOutbound),
			pos:  start,
		}, nil
	}

	l.pos++ // consume '-'
	from, until, err := l.lexDepth()
	if err != nil {
		return token{}, err
	}
	if !l.has("->") {
		return token{}, l.errorf(l.pos, "expected '->' to close traversal")
	}
	l.pos += 2
	return token{
		kind: tokenTraversal,
		text: l.src[start:l.pos],
		nav:  query.NewNavigation(from, until, "", query.DirectionOutbound),
		pos:  start,
	}, nil
}

// lexInboundTraversal consumes "<--", "<-->", "<-[a:b]-" or "<-[a:b]->".
func (l *lexer) lexInboundTraversal() (token, error) {
	start := l.pos
	if l.has("<-->") {
		l.pos += 4
		return token{
			kind: tokenTraversal,
			text: "<-->",
			nav:  query.NewNavigation(1, 1, "", query.DirectionAny),
			pos:  start,
		}, nil
	}
	if l.has("<--") {
		l.pos += 3
		return token{
			kind: tokenTraversal,
			text: "<--",
			nav:  query.NewNavigation(1, 1, "", query.DirectionInbound),
			pos:  start,
		}, nil
	}

	l.pos += 2 // consume "<-"
	from, until, err := l.lexDepth()
	if err != nil {
		return token{}, err
	}
	if !l.has("-") {
		return token{}, l.errorf(l.pos, "expected '-' to close traversal")
	}
	l.pos++
	direction := query.DirectionInbound
	if l.has(">") {
		l.pos++
		direction = query.DirectionAny
	}
	return token{
		kind: tokenTraversal,
		text: l.src[start:l.pos],
		nav:  query.NewNavigation(from, until, "", direction),
		pos:  start,
	}, nil
}

// lexDepth consumes "[a]", "[a:b]" or "[a:]" (open upper bound).
func (l *lexer) lexDepth() (int, int, error) {
	if !l.has("[") {
		return 0, 0, l.errorf(l.pos, "expected '[' in traversal depth")
	}
	l.pos++
	from, err := l.lexInt()
	if err != nil {
		return 0, 0, err
	}
	until := from
	if l.has(":") {
		l.pos++
		if l.has("]") {
			until = query.NavigationMax
		} else {
			until, err = l.lexInt()
			if err != nil {
				return 0, 0, err
			}
		}
	}
	if !l.has("]") {
		return 0, 0, l.errorf(l.pos, "expected ']' in traversal depth")
	}
	l.pos++
	return from, until, nil
}

func (l *lexer) lexInt() (int, error) {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
		l.pos++
	}
	if l.pos == start {
		return 0, l.errorf(start, "expected a number")
	}
	n, err := strconv.Atoi(l.src[start:l.pos])
	if err != nil {
		return 0, l.errorf(start, "invalid number %q", l.src[start:l.pos])
	}
	return n, nil
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.has("-") {
		l.pos++
	}
	seenDigit := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' {
			seenDigit = true
			l.pos++
			continue
		}
		if seenDigit && (c == '.' || c == 'e' || c == 'E') {
			l.pos++
			continue
		}
		// an exponent sign is only valid directly after e/E
		if seenDigit && (c == '+' || c == '-') {
			prev := l.src[l.pos-1]
			if prev == 'e' || prev == 'E' {
				l.pos++
				continue
			}
		}
		break
	}
	if !seenDigit {
		return token{}, l.errorf(start, "expected a number")
	}
	return token{kind: tokenNumber, text: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokenString, text: sb.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, l.errorf(l.pos, "unterminated escape")
			}
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(l.src[l.pos])
			}
			l.pos++
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, l.errorf(start, "unterminated string")
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '/' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tokenIdent, text: l.src[start:l.pos], pos: start}, nil
}
