package condition

import (
	"fmt"
	"strconv"
)

// expr is a node in the parsed expression tree.
type expr interface {
	// refs appends the flag paths referenced under the given root.
	refs(root string, out *[]string)
}

type literalExpr struct {
	value any // float64, string, bool, or absent
}

type propertyExpr struct {
	root string   // "flags" or "context"
	path []string // remaining segments, at least one
}

type unaryExpr struct {
	operand expr // logical not
}

type binaryExpr struct {
	op          tokenKind // tokenAnd..tokenGe
	left, right expr
}

func (e *literalExpr) refs(string, *[]string) {}

func (e *propertyExpr) refs(root string, out *[]string) {
	if e.root != root {
		return
	}
	joined := e.path[0]
	for _, seg := range e.path[1:] {
		joined += "." + seg
	}
	*out = append(*out, joined)
}

func (e *unaryExpr) refs(root string, out *[]string) {
	e.operand.refs(root, out)
}

func (e *binaryExpr) refs(root string, out *[]string) {
	e.left.refs(root, out)
	e.right.refs(root, out)
}

// parser implements a recursive-descent parse of the restricted boolean
// grammar. Precedence, lowest first: ||, &&, comparison, !, primary.
type parser struct {
	lex *lexer
	cur token
}

// parse compiles the expression string into a tree. Empty expressions and
// any construct outside the grammar are rejected here, before evaluation.
func parse(input string) (expr, error) {
	p := &parser{lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.kind == tokenEOF {
		return nil, fmt.Errorf("empty expression")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.text, p.cur.pos)
	}
	return root, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tokenOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: tokenAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	switch p.cur.kind {
	case tokenEq, tokenNe, tokenLt, tokenLe, tokenGt, tokenGe:
		op := p.cur.kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &binaryExpr{op: op, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (expr, error) {
	if p.cur.kind == tokenNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	switch p.cur.kind {
	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokenRParen {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", p.cur.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenNumber:
		lit, err := parseNumber(p.cur.text)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &literalExpr{value: lit}, nil

	case tokenString:
		lit := &literalExpr{value: p.cur.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit, nil

	case tokenBool:
		lit := &literalExpr{value: p.cur.text == "true"}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit, nil

	case tokenNull, tokenUndefined:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &literalExpr{value: absent{}}, nil

	case tokenIdent:
		return p.parseProperty()

	case tokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.text, p.cur.pos)
}

// parseProperty accepts only flags.<path> and context.<path> access.
// Bare identifiers and function-call syntax are outside the grammar.
func (p *parser) parseProperty() (expr, error) {
	root := p.cur.text
	pos := p.cur.pos
	if root != "flags" && root != "context" {
		return nil, fmt.Errorf("unknown identifier %q at position %d (only flags.* and context.* may be referenced)", root, pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var path []string
	for p.cur.kind == tokenDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tokenIdent {
			return nil, fmt.Errorf("expected property name after '.' at position %d", p.cur.pos)
		}
		path = append(path, p.cur.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if len(path) == 0 {
		return nil, fmt.Errorf("bare %q reference at position %d (expected %s.<name>)", root, pos, root)
	}
	if p.cur.kind == tokenLParen {
		return nil, fmt.Errorf("function calls are not allowed (position %d)", p.cur.pos)
	}
	return &propertyExpr{root: root, path: path}, nil
}

func parseNumber(text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return f, nil
}
