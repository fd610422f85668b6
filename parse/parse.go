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

package parse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nburtsev/resoto/query"
)

// Expander parses detection search strings into queries, substituting
// template variables from the check environment and resolving variable
// names against the requested section. It satisfies the template-expander
// contract report.Inspector consumes.
type Expander struct{}

// ParseQuery implements the expander contract: expand {{variables}} from
// env, parse the result, rebind every variable to onSection, and lift
// ancestor/descendant predicates into merge queries so they resolve
// through the graph rather than against the node's own document.
func (Expander) ParseQuery(ctx context.Context, source, onSection string, env map[string]interface{}) (*query.Query, error) {
	expanded, err := ExpandTemplate(source, env)
	if err != nil {
		return nil, err
	}
	q, err := ParseQueryString(expanded)
	if err != nil {
		return nil, err
	}
	// OnSection with an empty section still strips root anchors, so the
	// rewrite below always sees absolute names.
	q = q.OnSection(onSection)
	return q.RewriteAncestorsDescendants()
}

var templateVar = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)
var bareWord = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ExpandTemplate substitutes every {{name}} in source with the rendered
// value of env[name]. A reference with no value in env is a parse error.
func ExpandTemplate(source string, env map[string]interface{}) (string, error) {
	var missing []string
	out := templateVar.ReplaceAllStringFunc(source, func(m string) string {
		name := templateVar.FindStringSubmatch(m)[1]
		v, ok := env[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return renderTemplateValue(v)
	})
	if len(missing) > 0 {
		return "", query.ErrParse.New(fmt.Sprintf("template variables %v have no value", missing))
	}
	return out, nil
}

// renderTemplateValue renders a template value so the substituted text
// lexes back to the same value: bare words stay bare (usable inside is()),
// everything else renders in canonical value form.
func renderTemplateValue(v interface{}) string {
	if s, ok := v.(string); ok && bareWord.MatchString(s) {
		return s
	}
	return query.ValueStrRep(v)
}

// ParseQueryString parses search text into a Query, variables left exactly
// as written.
func ParseQueryString(src string) (*query.Query, error) {
	toks, err := lexAll(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}

	term, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	q := query.By(term, nil)

	for {
		tok := p.peek()
		switch {
		case tok.kind == tokenEOF:
			return q, nil
		case tok.kind == tokenTraversal:
			p.advance()
			nav := tok.nav
			q = q.Traverse(nav.Start, nav.Until, nav.EdgeType, nav.Direction)
		case tok.kind == tokenIdent && tok.text == "sort":
			p.advance()
			name, order, err := p.parseSort()
			if err != nil {
				return nil, err
			}
			q = q.AddSort(name, order)
		case tok.kind == tokenIdent && tok.text == "limit":
			p.advance()
			n, err := p.parseLimit()
			if err != nil {
				return nil, err
			}
			q = q.WithLimit(n)
		default:
			term, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			q = q.Filter(term)
		}
	}
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	tok := p.toks[p.i]
	if tok.kind != tokenEOF {
		p.i++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return query.ErrParse.New(fmt.Sprintf("%s at position %d in %q", msg, tok.pos, p.src))
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.advance()
	if tok.kind != kind {
		return token{}, p.errorf(tok, "expected %s, found %q", kind, tok.text)
	}
	return tok, nil
}

func (p *parser) parseSort() (string, query.SortOrder, error) {
	name, err := p.expect(tokenIdent)
	if err != nil {
		return "", query.Asc, err
	}
	order := query.Asc
	if next := p.peek(); next.kind == tokenIdent && (next.text == "asc" || next.text == "desc") {
		p.advance()
		if next.text == "desc" {
			order = query.Desc
		}
	}
	return name.text, order, nil
}

func (p *parser) parseLimit() (int, error) {
	tok, err := p.expect(tokenNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorf(tok, "limit must be an integer, found %q", tok.text)
	}
	return n, nil
}

func (p *parser) parseOr() (query.Term, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenIdent || tok.text != "or" {
			return left, nil
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = query.OrTerm(left, right)
	}
}

func (p *parser) parseAnd() (query.Term, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenIdent || tok.text != "and" {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = query.AndTerm(left, right)
	}
}

func (p *parser) parseUnary() (query.Term, error) {
	tok := p.peek()
	if tok.kind == tokenIdent && tok.text == "not" {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return query.NotTerm{Term: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (query.Term, error) {
	tok := p.advance()
	switch tok.kind {
	case tokenLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenIdent:
		switch tok.text {
		case "all":
			return query.AllTerm{}, nil
		case "is":
			return p.parseIs()
		case "id":
			return p.parseId()
		}
		if p.peek().kind == tokenLParen {
			return p.parseFunction(tok.text)
		}
		return p.parsePredicate(tok.text)
	}

	return nil, p.errorf(tok, "expected a term, found %q", tok.text)
}

func (p *parser) parseIs() (query.Term, error) {
	if _, err := p.expect(tokenLParen); err != nil {
		return nil, err
	}
	var kinds []string
	for {
		tok := p.advance()
		if tok.kind != tokenIdent && tok.kind != tokenString {
			return nil, p.errorf(tok, "expected a kind name, found %q", tok.text)
		}
		kinds = append(kinds, tok.text)
		next := p.advance()
		if next.kind == tokenRParen {
			return query.IsTerm{Kinds: kinds}, nil
		}
		if next.kind != tokenComma {
			return nil, p.errorf(next, "expected ',' or ')' in is(), found %q", next.text)
		}
	}
}

func (p *parser) parseId() (query.Term, error) {
	if _, err := p.expect(tokenLParen); err != nil {
		return nil, err
	}
	tok := p.advance()
	if tok.kind != tokenIdent && tok.kind != tokenString {
		return nil, p.errorf(tok, "expected an id, found %q", tok.text)
	}
	if _, err := p.expect(tokenRParen); err != nil {
		return nil, err
	}
	return query.IdTerm{Id: tok.text}, nil
}

// parseFunction parses fn(property_path, args...) into a FunctionTerm.
func (p *parser) parseFunction(fn string) (query.Term, error) {
	p.advance() // consume '('
	path, err := p.expect(tokenIdent)
	if err != nil {
		return nil, err
	}
	var args []interface{}
	for {
		next := p.advance()
		if next.kind == tokenRParen {
			return query.Fn(fn).On(path.text, args...), nil
		}
		if next.kind != tokenComma {
			return nil, p.errorf(next, "expected ',' or ')' in %s(), found %q", fn, next.text)
		}
		arg, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}

func (p *parser) parsePredicate(name string) (query.Term, error) {
	tok := p.advance()

	switch {
	case tok.kind == tokenOp:
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return query.Predicate{Name: name, Op: query.Op(tok.text), Value: value, Args: map[string]interface{}{}}, nil

	case tok.kind == tokenIdent && tok.text == "in":
		values, err := p.parseArray()
		if err != nil {
			return nil, err
		}
		return query.Pred(name).IsIn(values), nil

	case tok.kind == tokenIdent && tok.text == "not":
		if next := p.advance(); next.kind != tokenIdent || next.text != "in" {
			return nil, p.errorf(next, "expected 'in' after 'not', found %q", next.text)
		}
		values, err := p.parseArray()
		if err != nil {
			return nil, err
		}
		return query.Pred(name).IsNotIn(values), nil
	}

	return nil, p.errorf(tok, "expected a comparison after %q, found %q", name, tok.text)
}

func (p *parser) parseArray() ([]interface{}, error) {
	if _, err := p.expect(tokenLBracket); err != nil {
		return nil, err
	}
	var values []interface{}
	if p.peek().kind == tokenRBracket {
		p.advance()
		return values, nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		next := p.advance()
		if next.kind == tokenRBracket {
			return values, nil
		}
		if next.kind != tokenComma {
			return nil, p.errorf(next, "expected ',' or ']' in list, found %q", next.text)
		}
	}
}

func (p *parser) parseValue() (interface{}, error) {
	tok := p.advance()
	switch tok.kind {
	case tokenString:
		return tok.text, nil
	case tokenNumber:
		if strings.ContainsAny(tok.text, ".eE") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, p.errorf(tok, "invalid number %q", tok.text)
			}
			return f, nil
		}
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.text)
		}
		return n, nil
	case tokenIdent:
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		// a bare word is a string value
		return tok.text, nil
	case tokenLBracket:
		p.i-- // parseArray re-consumes the bracket
		return p.parseArray()
	}
	return nil, p.errorf(tok, "expected a value, found %q", tok.text)
}
