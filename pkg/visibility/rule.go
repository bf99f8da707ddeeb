package visibility

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-customfields/pkg/valuepath"
	"github.com/goliatone/go-customfields/pkg/values"
)

// ErrSyntax is matched by every error Compile returns.
var ErrSyntax = errors.New("visibility: invalid rule")

// SyntaxError locates a problem in a rule.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("visibility: %s at offset %d", e.Msg, e.Pos)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// ExtrasPrefix marks identifiers read from the extras map instead of the
// form value.
const ExtrasPrefix = "extras."

var operators = map[string]values.Operator{
	"==": values.OpEq,
	"!=": values.OpNeq,
	">":  values.OpGt,
	">=": values.OpGte,
	"<":  values.OpLt,
	"<=": values.OpLte,
}

// Rule is a compiled visibleIf expression. A nil or empty rule always holds.
type Rule struct {
	source string
	root   node
	fields []string
}

// Compile parses rule.
func Compile(rule string) (*Rule, error) {
	source := strings.TrimSpace(rule)
	if source == "" {
		return &Rule{}, nil
	}
	tokens, err := scan(source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, fields: map[string]struct{}{}}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
	fields := make([]string, 0, len(p.fields))
	for field := range p.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return &Rule{source: source, root: root, fields: fields}, nil
}

// String returns the trimmed source of the rule.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Fields lists the value paths the rule reads, extras excluded.
func (r *Rule) Fields() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.fields...)
}

// Eval reports whether the rule holds for value. extras may be nil.
func (r *Rule) Eval(value, extras map[string]any) bool {
	if r == nil || r.root == nil {
		return true
	}
	return r.root.eval(env{value: value, extras: extras})
}

// Visible compiles and evaluates rule in one step. Rules that fail to
// compile leave the field visible.
func Visible(rule string, value map[string]any) bool {
	compiled, err := Compile(rule)
	if err != nil {
		return true
	}
	return compiled.Eval(value, nil)
}

type env struct {
	value  map[string]any
	extras map[string]any
}

func (e env) lookup(ident string) any {
	if rest, ok := strings.CutPrefix(ident, ExtrasPrefix); ok {
		got, _ := valuepath.Get(e.extras, rest)
		return got
	}
	got, _ := valuepath.Get(e.value, ident)
	return got
}

type node interface {
	eval(e env) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(e env) bool { return n.left.eval(e) || n.right.eval(e) }

type andNode struct{ left, right node }

func (n andNode) eval(e env) bool { return n.left.eval(e) && n.right.eval(e) }

type notNode struct{ inner node }

func (n notNode) eval(e env) bool { return !n.inner.eval(e) }

type truthyNode struct{ ident string }

func (n truthyNode) eval(e env) bool { return truthy(e.lookup(n.ident)) }

type compareNode struct {
	ident   string
	op      values.Operator
	operand any
}

func (n compareNode) eval(e env) bool {
	field := e.lookup(n.ident)
	if b, ok := n.operand.(bool); ok {
		return values.Compare(truthy(field), n.op, b)
	}
	return values.Compare(field, n.op, n.operand)
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return strings.TrimSpace(typed) != ""
	case float64:
		return typed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	default:
		return true
	}
}

type parser struct {
	tokens []token
	pos    int
	fields map[string]struct{}
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	if tok, ok := p.peek(); ok && tok.kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) end() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.pos + len(last.text)
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &SyntaxError{Pos: p.end(), Msg: "expression ends early"}
	}
	if tok.kind == tokLParen {
		p.pos++
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, &SyntaxError{Pos: p.end(), Msg: `missing ")"`}
		}
		return inner, nil
	}
	if tok.kind != tokIdent {
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected a field, got %q", tok.text)}
	}
	p.pos++
	if !strings.HasPrefix(tok.text, ExtrasPrefix) {
		p.fields[tok.text] = struct{}{}
	}

	opTok, ok := p.peek()
	if !ok || opTok.kind != tokOp {
		return truthyNode{ident: tok.text}, nil
	}
	p.pos++
	operand, err := p.literal()
	if err != nil {
		return nil, err
	}
	return compareNode{ident: tok.text, op: operators[opTok.text], operand: operand}, nil
}

func (p *parser) literal() (any, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &SyntaxError{Pos: p.end(), Msg: "missing value after operator"}
	}
	p.pos++
	switch tok.kind {
	case tokString, tokIdent:
		return tok.text, nil
	case tokNumber:
		n, _ := strconv.ParseFloat(tok.text, 64)
		return n, nil
	case tokBool:
		return tok.text == "true", nil
	case tokNull:
		return nil, nil
	default:
		return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected a value, got %q", tok.text)}
	}
}
