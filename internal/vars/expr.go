package vars

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxNesting = 128

// Expression is a parsed assertion expression. It is immutable and may be
// evaluated any number of times against different scopes.
//
// The grammar, loosest binding first:
//
//	expr    = and { "||" and }
//	and     = eq { "&&" eq }
//	eq      = rel { ("==" | "!=") rel }
//	rel     = add { ("<" | "<=" | ">" | ">=") add }
//	add     = mul { ("+" | "-") mul }
//	mul     = unary { ("*" | "/" | "%") unary }
//	unary   = ("!" | "-") unary | postfix
//	postfix = primary { "." method "(" [ expr { "," expr } ] ")" }
//	primary = string | integer | "true" | "false" | identifier | "(" expr ")"
type Expression struct {
	src  string
	root node
}

// Compile parses src.
func Compile(src string) (*Expression, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tkEOF {
		return nil, p.errorf(0, "empty expression")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tkEOF {
		return nil, p.errorf(t.pos, "unexpected %s", t)
	}
	return &Expression{src: src, root: root}, nil
}

// String returns the source text.
func (e *Expression) String() string { return e.src }

// Eval evaluates the expression. Identifiers are resolved through lookup.
// The result is a string, an int64, or a bool.
func (e *Expression) Eval(lookup func(name string) (any, bool)) (any, error) {
	return e.root.eval(&env{src: e.src, lookup: lookup})
}

// Evaluate compiles expr and evaluates it with identifiers bound to the
// scope's variables.
func (s *Store) Evaluate(expr string) (any, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.Eval(s.TryGet)
}

// EvaluateBool evaluates expr and requires a boolean result.
func (s *Store) EvaluateBool(expr string) (bool, error) {
	v, err := s.Evaluate(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ExpressionError{Expr: expr, Pos: 0, Msg: fmt.Sprintf("result is %s, not a boolean", typeName(v))}
	}
	return b, nil
}

type parser struct {
	src   string
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tkEOF {
		p.pos++
	}
	return t
}

// accept consumes the next token if it is one of ops.
func (p *parser) accept(ops ...string) (token, bool) {
	t := p.peek()
	if t.kind != tkOp {
		return t, false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return t, true
		}
	}
	return t, false
}

func (p *parser) expect(op string) error {
	if _, ok := p.accept(op); !ok {
		t := p.peek()
		return p.errorf(t.pos, "expected %q, found %s", op, t)
	}
	return nil
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &ExpressionError{Expr: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// binaryLevel parses one left-associative precedence level.
func (p *parser) binaryLevel(operand func() (node, error), ops ...string) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.accept(ops...)
		if !ok {
			return left, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &binary{at: t.pos, op: t.text, l: left, r: right}
	}
}

func (p *parser) parseOr() (node, error)  { return p.binaryLevel(p.parseAnd, "||") }
func (p *parser) parseAnd() (node, error) { return p.binaryLevel(p.parseEq, "&&") }
func (p *parser) parseEq() (node, error)  { return p.binaryLevel(p.parseRel, "==", "!=") }
func (p *parser) parseRel() (node, error) { return p.binaryLevel(p.parseAdd, "<", "<=", ">", ">=") }
func (p *parser) parseAdd() (node, error) { return p.binaryLevel(p.parseMul, "+", "-") }
func (p *parser) parseMul() (node, error) { return p.binaryLevel(p.parseUnary, "*", "/", "%") }

func (p *parser) parseUnary() (node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return nil, p.errorf(p.peek().pos, "expression nested too deeply")
	}

	if t, ok := p.accept("!", "-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{at: t.pos, op: t.text, x: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("."); !ok {
			return x, nil
		}
		name := p.next()
		if name.kind != tkIdent {
			return nil, p.errorf(name.pos, "expected method name, found %s", name)
		}
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var args []node
		if _, ok := p.accept(")"); !ok {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if _, ok := p.accept(","); !ok {
					break
				}
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
		}
		x = &call{at: name.pos, recv: x, method: name.text, args: args}
	}
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tkString:
		return &literal{value: t.text}, nil
	case tkInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t.pos, "integer %s out of range", t.text)
		}
		return &literal{value: n}, nil
	case tkIdent:
		switch t.text {
		case "true":
			return &literal{value: true}, nil
		case "false":
			return &literal{value: false}, nil
		}
		return &ident{at: t.pos, name: t.text}, nil
	case tkOp:
		if t.text == "(" {
			x, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, p.errorf(t.pos, "unexpected %s", t)
}

type env struct {
	src    string
	lookup func(name string) (any, bool)
}

func (e *env) errorf(pos int, format string, args ...any) error {
	return &ExpressionError{Expr: e.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type node interface {
	eval(e *env) (any, error)
}

type literal struct{ value any }

func (n *literal) eval(*env) (any, error) { return n.value, nil }

type ident struct {
	at   int
	name string
}

func (n *ident) eval(e *env) (any, error) {
	if e.lookup != nil {
		if v, ok := e.lookup(n.name); ok {
			return normalize(v), nil
		}
	}
	return nil, fmt.Errorf("expression %q at offset %d: %w", e.src, n.at, &VariableNotFoundError{Name: n.name})
}

type unary struct {
	at int
	op string
	x  node
}

func (n *unary) eval(e *env) (any, error) {
	v, err := n.x.eval(e)
	if err != nil {
		return nil, err
	}
	if n.op == "!" {
		b, ok := v.(bool)
		if !ok {
			return nil, e.errorf(n.at, "operator ! needs a boolean, got %s", typeName(v))
		}
		return !b, nil
	}
	i, err := toInt(e, n.at, n.op, v)
	if err != nil {
		return nil, err
	}
	return -i, nil
}

type binary struct {
	at   int
	op   string
	l, r node
}

func (n *binary) eval(e *env) (any, error) {
	left, err := n.l.eval(e)
	if err != nil {
		return nil, err
	}

	if n.op == "&&" || n.op == "||" {
		lb, ok := left.(bool)
		if !ok {
			return nil, e.errorf(n.at, "operator %s needs booleans, got %s", n.op, typeName(left))
		}
		if (n.op == "&&" && !lb) || (n.op == "||" && lb) {
			return lb, nil
		}
		right, err := n.r.eval(e)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, e.errorf(n.at, "operator %s needs booleans, got %s", n.op, typeName(right))
		}
		return rb, nil
	}

	right, err := n.r.eval(e)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return stringify(left) + stringify(right), nil
		}
	}

	a, err := toInt(e, n.at, n.op, left)
	if err != nil {
		return nil, err
	}
	b, err := toInt(e, n.at, n.op, right)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return nil, e.errorf(n.at, "division by zero")
		}
		if n.op == "/" {
			return a / b, nil
		}
		return a % b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	}
	return nil, e.errorf(n.at, "unknown operator %s", n.op)
}

type call struct {
	at     int
	recv   node
	method string
	args   []node
}

var methodArity = map[string]int{
	"equals":           1,
	"equalsIgnoreCase": 1,
	"contains":         1,
	"startsWith":       1,
	"endsWith":         1,
	"matches":          1,
	"isEmpty":          0,
	"length":           0,
	"trim":             0,
}

func (n *call) eval(e *env) (any, error) {
	arity, ok := methodArity[n.method]
	if !ok {
		return nil, e.errorf(n.at, "unknown method %s", n.method)
	}
	if len(n.args) != arity {
		return nil, e.errorf(n.at, "%s takes %d argument(s), got %d", n.method, arity, len(n.args))
	}

	rv, err := n.recv.eval(e)
	if err != nil {
		return nil, err
	}
	recv := stringify(rv)

	var arg string
	if arity == 1 {
		av, err := n.args[0].eval(e)
		if err != nil {
			return nil, err
		}
		arg = stringify(av)
	}

	switch n.method {
	case "equals":
		return recv == arg, nil
	case "equalsIgnoreCase":
		return strings.EqualFold(recv, arg), nil
	case "contains":
		return strings.Contains(recv, arg), nil
	case "startsWith":
		return strings.HasPrefix(recv, arg), nil
	case "endsWith":
		return strings.HasSuffix(recv, arg), nil
	case "matches":
		re, err := regexp.Compile(`^(?:` + arg + `)$`)
		if err != nil {
			return nil, e.errorf(n.at, "bad pattern %q: %v", arg, err)
		}
		return re.MatchString(recv), nil
	case "isEmpty":
		return recv == "", nil
	case "length":
		return int64(utf8.RuneCountInString(recv)), nil
	default: // trim
		return strings.TrimSpace(recv), nil
	}
}

// normalize maps scope values onto the three expression types.
func normalize(v any) any {
	switch t := v.(type) {
	case string, bool, int64:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	default:
		return format(v)
	}
}

// toInt accepts integers and strings holding a decimal integer, so values
// captured from page text compare numerically.
func toInt(e *env, pos int, op string, v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, e.errorf(pos, "operator %s needs integers, %q is not one", op, t)
		}
		return n, nil
	default:
		return 0, e.errorf(pos, "operator %s needs integers, got %s", op, typeName(v))
	}
}

// equal compares same-typed values directly and mixed types by text.
func equal(a, b any) bool {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x == y
		}
	case int64:
		if y, ok := b.(int64); ok {
			return x == y
		}
	case bool:
		if y, ok := b.(bool); ok {
			return x == y
		}
	}
	return stringify(a) == stringify(b)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return format(v)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "a string"
	case int64:
		return "an integer"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
