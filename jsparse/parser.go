// Package jsparse is a hand-rolled recursive-descent parser for the subset
// of ECMAScript 5 that obfuscated/minified output actually uses: no
// generators, async/await, destructuring, or classes (spec.md §6 lists the
// parser as an assumed external collaborator; this package is this repo's
// concrete instance of that collaborator). Design mirrors the teacher's
// own parse/parse.go: a three-token lookahead buffer, precedence-climbing
// expression parsing, and panic/recover error propagation.
package jsparse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/jsdeobf/jsdeobf/jsast"
)

// Parse converts JavaScript source text into a Program.
func Parse(name, src string) (prog *jsast.Program, err error) {
	p := &parser{name: name, lex: lex(name, src), src: src}
	defer p.recover(&err)
	prog = p.parseProgram()
	return prog, err
}

type parser struct {
	name      string
	src       string
	lex       *lexer
	token     [3]item
	peekCount int
}

// ParseError carries the source position of a parse failure, consumed by
// package errs to render a code frame (spec.md §7, InputError/InternalError).
type ParseError struct {
	Name    string
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Line, e.Col, e.Message)
}

func (p *parser) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	if pe, ok := e.(*ParseError); ok {
		*errp = pe
		return
	}
	if err, ok := e.(error); ok {
		*errp = err
		return
	}
	*errp = errors.New(fmt.Sprint(e))
}

func (p *parser) next() item {
	if p.peekCount > 0 {
		p.peekCount--
	} else {
		p.token[0] = p.lex.nextItem()
	}
	return p.token[p.peekCount]
}

func (p *parser) backup()          { p.peekCount++ }
func (p *parser) backup2(t1 item)  { p.token[1] = t1; p.peekCount = 2 }
func (p *parser) peek() item {
	if p.peekCount > 0 {
		return p.token[p.peekCount-1]
	}
	p.peekCount = 1
	p.token[0] = p.lex.nextItem()
	return p.token[0]
}

func (p *parser) errorf(pos jsast.Pos, format string, args ...interface{}) {
	panic(&ParseError{
		Name:    p.name,
		Line:    p.lex.lineNumber(pos),
		Col:     p.lex.columnNumber(pos),
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) unexpected(tok item, context string) {
	if tok.typ == itemError {
		p.errorf(tok.pos, "lexical error: %s", tok.val)
	}
	p.errorf(tok.pos, "unexpected %v in %s", tok, context)
}

// is reports whether tok is a punctuation/keyword token with value s.
func is(tok item, s string) bool {
	return (tok.typ == itemPunct || tok.typ == itemIdent) && tok.val == s
}

func (p *parser) expectPunct(s, context string) item {
	tok := p.next()
	if !is(tok, s) {
		p.unexpected(tok, context+" (expected "+s+")")
	}
	return tok
}

// ---- Program & statements -------------------------------------------------

func (p *parser) parseProgram() *jsast.Program {
	prog := &jsast.Program{}
	for {
		tok := p.peek()
		if tok.typ == itemEOF {
			break
		}
		prog.Body = append(prog.Body, p.parseStatement())
	}
	return prog
}

func (p *parser) parseBlock() *jsast.BlockStatement {
	start := p.expectPunct("{", "block")
	b := &jsast.BlockStatement{Pos: start.pos}
	for {
		tok := p.peek()
		if is(tok, "}") {
			p.next()
			break
		}
		if tok.typ == itemEOF {
			p.unexpected(tok, "block")
		}
		b.Body = append(b.Body, p.parseStatement())
	}
	return b
}

func (p *parser) parseStatement() jsast.Statement {
	tok := p.peek()
	switch {
	case is(tok, "{"):
		return p.parseBlock()
	case is(tok, ";"):
		p.next()
		return &jsast.EmptyStatement{Pos: tok.pos}
	case is(tok, "var") || is(tok, "let") || is(tok, "const"):
		d := p.parseVariableDeclaration()
		p.semi()
		return d
	case is(tok, "function"):
		return p.parseFunctionDeclaration()
	case is(tok, "return"):
		return p.parseReturn()
	case is(tok, "if"):
		return p.parseIf()
	case is(tok, "for"):
		return p.parseFor()
	case is(tok, "while"):
		return p.parseWhile()
	case is(tok, "do"):
		return p.parseDoWhile()
	case is(tok, "switch"):
		return p.parseSwitch()
	case is(tok, "break"):
		return p.parseBreakContinue(true)
	case is(tok, "continue"):
		return p.parseBreakContinue(false)
	case is(tok, "throw"):
		return p.parseThrow()
	case is(tok, "try"):
		return p.parseTry()
	case is(tok, "debugger"):
		p.next()
		p.semi()
		return &jsast.DebuggerStatement{Pos: tok.pos}
	}
	// labeled statement: Identifier ":" , disambiguated by lookahead
	if tok.typ == itemIdent && !isReservedWord(tok.val) {
		save := tok
		next2 := p.next()
		colon := p.next()
		if is(colon, ":") {
			return &jsast.LabeledStatement{Pos: save.pos,
				Label: jsast.Identifier{Pos: save.pos, Name: save.val},
				Body:  p.parseStatement()}
		}
		p.backup()
		p.backup2(next2)
	}
	return p.parseExpressionStatement()
}

// semi consumes an optional ";"; JS's automatic-semicolon-insertion is
// approximated by treating the terminator as always optional, which is
// sufficient for the machine-generated input this engine targets.
func (p *parser) semi() {
	if is(p.peek(), ";") {
		p.next()
	}
}

func (p *parser) parseExpressionStatement() jsast.Statement {
	start := p.peek()
	e := p.parseExpression()
	p.semi()
	return &jsast.ExpressionStatement{Pos: start.pos, Expr: e}
}

func (p *parser) parseVariableDeclaration() *jsast.VariableDeclaration {
	kindTok := p.next()
	d := &jsast.VariableDeclaration{Pos: kindTok.pos, Kind: kindTok.val}
	for {
		idTok := p.next()
		if idTok.typ != itemIdent {
			p.unexpected(idTok, "variable name")
		}
		decl := &jsast.VariableDeclarator{Pos: idTok.pos, Id: &jsast.Identifier{Pos: idTok.pos, Name: idTok.val}}
		if is(p.peek(), "=") {
			p.next()
			decl.Init = p.parseAssign()
		}
		d.Declarations = append(d.Declarations, decl)
		if is(p.peek(), ",") {
			p.next()
			continue
		}
		break
	}
	return d
}

func (p *parser) parseFunctionDeclaration() *jsast.FunctionDeclaration {
	start := p.next() // "function"
	nameTok := p.next()
	if nameTok.typ != itemIdent {
		p.unexpected(nameTok, "function name")
	}
	params := p.parseParams()
	body := p.parseBlock()
	return &jsast.FunctionDeclaration{Pos: start.pos,
		Id:     &jsast.Identifier{Pos: nameTok.pos, Name: nameTok.val},
		Params: params, Body: body}
}

func (p *parser) parseParams() []*jsast.Identifier {
	p.expectPunct("(", "parameter list")
	var params []*jsast.Identifier
	for !is(p.peek(), ")") {
		idTok := p.next()
		if idTok.typ != itemIdent {
			p.unexpected(idTok, "parameter name")
		}
		params = append(params, &jsast.Identifier{Pos: idTok.pos, Name: idTok.val})
		if is(p.peek(), ",") {
			p.next()
			continue
		}
		break
	}
	p.expectPunct(")", "parameter list")
	return params
}

func (p *parser) parseReturn() jsast.Statement {
	start := p.next()
	r := &jsast.ReturnStatement{Pos: start.pos}
	if !is(p.peek(), ";") && !is(p.peek(), "}") && p.peek().typ != itemEOF {
		r.Argument = p.parseExpression()
	}
	p.semi()
	return r
}

func (p *parser) parseIf() jsast.Statement {
	start := p.next()
	p.expectPunct("(", "if")
	test := p.parseExpression()
	p.expectPunct(")", "if")
	cons := p.parseStatement()
	n := &jsast.IfStatement{Pos: start.pos, Test: test, Consequent: cons}
	if is(p.peek(), "else") {
		p.next()
		n.Alternate = p.parseStatement()
	}
	return n
}

func (p *parser) parseFor() jsast.Statement {
	start := p.next()
	p.expectPunct("(", "for")

	var init jsast.Node
	if !is(p.peek(), ";") {
		if is(p.peek(), "var") || is(p.peek(), "let") || is(p.peek(), "const") {
			init = p.parseVariableDeclaration()
		} else {
			init = p.parseExpressionNoIn()
			if bin, ok := init.(*jsast.BinaryExpression); ok && bin.Operator == "in" && is(p.peek(), ")") {
				p.next()
				body := p.parseStatement()
				return &jsast.ForInStatement{Pos: start.pos, Left: bin.Left, Right: bin.Right, Body: body}
			}
		}
	}
	if is(p.peek(), "in") {
		p.next()
		right := p.parseExpression()
		p.expectPunct(")", "for-in")
		body := p.parseStatement()
		return &jsast.ForInStatement{Pos: start.pos, Left: init, Right: right, Body: body}
	}
	p.expectPunct(";", "for")
	var test jsast.Expression
	if !is(p.peek(), ";") {
		test = p.parseExpression()
	}
	p.expectPunct(";", "for")
	var update jsast.Expression
	if !is(p.peek(), ")") {
		update = p.parseExpression()
	}
	p.expectPunct(")", "for")
	body := p.parseStatement()
	return &jsast.ForStatement{Pos: start.pos, Init: init, Test: test, Update: update, Body: body}
}

// parseExpressionNoIn parses the init clause of a for(;;) / for(in) header:
// either a bare expression or a sequence of assignments, returned as an
// Expression (a SequenceExpression when there is more than one). `in` is
// read here as an ordinary binary operator; parseFor turns a head that is
// a single `left in right` expression into a for-in statement.
func (p *parser) parseExpressionNoIn() jsast.Expression {
	return p.parseExpression()
}

func (p *parser) parseWhile() jsast.Statement {
	start := p.next()
	p.expectPunct("(", "while")
	test := p.parseExpression()
	p.expectPunct(")", "while")
	body := p.parseStatement()
	return &jsast.WhileStatement{Pos: start.pos, Test: test, Body: body}
}

func (p *parser) parseDoWhile() jsast.Statement {
	start := p.next()
	body := p.parseStatement()
	p.expectPunct("while", "do-while")
	p.expectPunct("(", "do-while")
	test := p.parseExpression()
	p.expectPunct(")", "do-while")
	p.semi()
	return &jsast.DoWhileStatement{Pos: start.pos, Body: body, Test: test}
}

func (p *parser) parseSwitch() jsast.Statement {
	start := p.next()
	p.expectPunct("(", "switch")
	disc := p.parseExpression()
	p.expectPunct(")", "switch")
	p.expectPunct("{", "switch")
	sw := &jsast.SwitchStatement{Pos: start.pos, Discriminant: disc}
	for !is(p.peek(), "}") {
		c := &jsast.SwitchCase{Pos: p.peek().pos}
		if is(p.peek(), "case") {
			p.next()
			c.Test = p.parseExpression()
		} else {
			p.expectPunct("default", "switch case")
		}
		p.expectPunct(":", "switch case")
		for !is(p.peek(), "case") && !is(p.peek(), "default") && !is(p.peek(), "}") {
			c.Consequent = append(c.Consequent, p.parseStatement())
		}
		sw.Cases = append(sw.Cases, c)
	}
	p.expectPunct("}", "switch")
	return sw
}

func (p *parser) parseBreakContinue(isBreak bool) jsast.Statement {
	start := p.next()
	var label *jsast.Identifier
	if tok := p.peek(); tok.typ == itemIdent && !isReservedWord(tok.val) && p.lex.lineNumber(tok.pos) == p.lex.lineNumber(start.pos) {
		p.next()
		label = &jsast.Identifier{Pos: tok.pos, Name: tok.val}
	}
	p.semi()
	if isBreak {
		return &jsast.BreakStatement{Pos: start.pos, Label: label}
	}
	return &jsast.ContinueStatement{Pos: start.pos, Label: label}
}

func (p *parser) parseThrow() jsast.Statement {
	start := p.next()
	arg := p.parseExpression()
	p.semi()
	return &jsast.ThrowStatement{Pos: start.pos, Argument: arg}
}

func (p *parser) parseTry() jsast.Statement {
	start := p.next()
	block := p.parseBlock()
	t := &jsast.TryStatement{Pos: start.pos, Block: block}
	if is(p.peek(), "catch") {
		p.next()
		p.expectPunct("(", "catch")
		var param *jsast.Identifier
		if !is(p.peek(), ")") {
			idTok := p.next()
			param = &jsast.Identifier{Pos: idTok.pos, Name: idTok.val}
		}
		p.expectPunct(")", "catch")
		t.Handler = &jsast.CatchClause{Pos: start.pos, Param: param, Body: p.parseBlock()}
	}
	if is(p.peek(), "finally") {
		p.next()
		t.Finalizer = p.parseBlock()
	}
	return t
}

// ---- Expressions: precedence climbing -------------------------------------

var binaryOps = map[string]int{
	"*": 13, "/": 13, "%": 13,
	"+": 12, "-": 12,
	"<<": 11, ">>": 11, ">>>": 11,
	"<": 10, "<=": 10, ">": 10, ">=": 10, "in": 10, "instanceof": 10,
	"==": 9, "!=": 9, "===": 9, "!==": 9,
	"&": 8, "^": 7, "|": 6,
}

var logicalOps = map[string]int{"&&": 5, "||": 4}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

// parseExpression parses a top-level expression, which may be a comma
// sequence.
func (p *parser) parseExpression() jsast.Expression {
	first := p.parseAssign()
	if !is(p.peek(), ",") {
		return first
	}
	seq := &jsast.SequenceExpression{Pos: first.Position(), Expressions: []jsast.Expression{first}}
	for is(p.peek(), ",") {
		p.next()
		seq.Expressions = append(seq.Expressions, p.parseAssign())
	}
	return seq
}

func (p *parser) parseAssign() jsast.Expression {
	left := p.parseConditional()
	tok := p.peek()
	if tok.typ == itemPunct && assignOps[tok.val] {
		p.next()
		right := p.parseAssign()
		return &jsast.AssignmentExpression{Pos: left.Position(), Operator: tok.val, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseConditional() jsast.Expression {
	test := p.parseBinary(0)
	if is(p.peek(), "?") {
		p.next()
		cons := p.parseAssign()
		p.expectPunct(":", "conditional expression")
		alt := p.parseAssign()
		return &jsast.ConditionalExpression{Pos: test.Position(), Test: test, Consequent: cons, Alternate: alt}
	}
	return test
}

// parseBinary implements precedence climbing over both arithmetic/relational
// operators and the logical && / || operators, exactly as the teacher's own
// parseExpr(prec) does for Soy's arithmetic grammar.
func (p *parser) parseBinary(minPrec int) jsast.Expression {
	left := p.parseUnary()
	for {
		tok := p.peek()
		if tok.typ != itemPunct && tok.typ != itemIdent {
			return left
		}
		prec, ok := binaryOps[tok.val]
		var logical bool
		if !ok {
			prec, ok = logicalOps[tok.val]
			logical = ok
		}
		if !ok || prec < minPrec {
			return left
		}
		p.next()
		right := p.parseBinary(prec + 1)
		if logical {
			left = &jsast.LogicalExpression{Pos: left.Position(), Operator: tok.val, Left: left, Right: right}
		} else {
			left = &jsast.BinaryExpression{Pos: left.Position(), Operator: tok.val, Left: left, Right: right}
		}
	}
}

var unaryOps = map[string]bool{
	"!": true, "~": true, "+": true, "-": true, "typeof": true, "void": true, "delete": true,
}

func (p *parser) parseUnary() jsast.Expression {
	tok := p.peek()
	if tok.val == "++" || tok.val == "--" {
		p.next()
		arg := p.parseUnary()
		return &jsast.UpdateExpression{Pos: tok.pos, Operator: tok.val, Prefix: true, Argument: arg}
	}
	if unaryOps[tok.val] && (tok.typ == itemPunct || tok.typ == itemIdent) {
		p.next()
		arg := p.parseUnary()
		return &jsast.UnaryExpression{Pos: tok.pos, Operator: tok.val, Prefix: true, Argument: arg}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() jsast.Expression {
	e := p.parseCallOrMember()
	tok := p.peek()
	if tok.val == "++" || tok.val == "--" {
		p.next()
		return &jsast.UpdateExpression{Pos: e.Position(), Operator: tok.val, Prefix: false, Argument: e}
	}
	return e
}

func (p *parser) parseCallOrMember() jsast.Expression {
	var e jsast.Expression
	if is(p.peek(), "new") {
		start := p.next()
		callee := p.parseCallOrMemberNoCall()
		var args []jsast.Expression
		if is(p.peek(), "(") {
			args = p.parseArgs()
		}
		e = &jsast.NewExpression{Pos: start.pos, Callee: callee, Arguments: args}
	} else {
		e = p.parsePrimary()
	}
	for {
		switch {
		case is(p.peek(), "."):
			p.next()
			propTok := p.next()
			e = &jsast.MemberExpression{Pos: e.Position(), Object: e,
				Property: &jsast.Identifier{Pos: propTok.pos, Name: propTok.val}, Computed: false}
		case is(p.peek(), "["):
			p.next()
			prop := p.parseExpression()
			p.expectPunct("]", "member expression")
			e = &jsast.MemberExpression{Pos: e.Position(), Object: e, Property: prop, Computed: true}
		case is(p.peek(), "("):
			args := p.parseArgs()
			e = &jsast.CallExpression{Pos: e.Position(), Callee: e, Arguments: args}
		default:
			return e
		}
	}
}

// parseCallOrMemberNoCall parses the callee of a `new` expression: member
// access binds, but a "(" starts the constructor's argument list rather
// than a call on an intermediate expression.
func (p *parser) parseCallOrMemberNoCall() jsast.Expression {
	e := p.parsePrimary()
	for {
		switch {
		case is(p.peek(), "."):
			p.next()
			propTok := p.next()
			e = &jsast.MemberExpression{Pos: e.Position(), Object: e,
				Property: &jsast.Identifier{Pos: propTok.pos, Name: propTok.val}, Computed: false}
		case is(p.peek(), "["):
			p.next()
			prop := p.parseExpression()
			p.expectPunct("]", "member expression")
			e = &jsast.MemberExpression{Pos: e.Position(), Object: e, Property: prop, Computed: true}
		default:
			return e
		}
	}
}

func (p *parser) parseArgs() []jsast.Expression {
	p.expectPunct("(", "argument list")
	var args []jsast.Expression
	for !is(p.peek(), ")") {
		args = append(args, p.parseAssign())
		if is(p.peek(), ",") {
			p.next()
			continue
		}
		break
	}
	p.expectPunct(")", "argument list")
	return args
}

func (p *parser) parsePrimary() jsast.Expression {
	tok := p.next()
	switch {
	case tok.typ == itemNumber:
		f, err := parseNumber(tok.val)
		if err != nil {
			p.errorf(tok.pos, "invalid number literal %q", tok.val)
		}
		return &jsast.Literal{Pos: tok.pos, Value: f, Raw: tok.val}
	case tok.typ == itemString:
		s, err := unquote(tok.val)
		if err != nil {
			p.errorf(tok.pos, "invalid string literal %q", tok.val)
		}
		return &jsast.Literal{Pos: tok.pos, Value: s, Raw: tok.val}
	case tok.typ == itemRegexp:
		return &jsast.Literal{Pos: tok.pos, Value: tok.val, Raw: tok.val}
	case is(tok, "true"):
		return &jsast.Literal{Pos: tok.pos, Value: true, Raw: tok.val}
	case is(tok, "false"):
		return &jsast.Literal{Pos: tok.pos, Value: false, Raw: tok.val}
	case is(tok, "null"):
		return &jsast.Literal{Pos: tok.pos, Value: nil, Raw: tok.val}
	case is(tok, "this"):
		return &jsast.ThisExpression{Pos: tok.pos}
	case is(tok, "function"):
		return p.parseFunctionExpression(tok)
	case is(tok, "("):
		e := p.parseExpression()
		p.expectPunct(")", "parenthesized expression")
		return e
	case is(tok, "["):
		return p.parseArrayLiteral(tok)
	case is(tok, "{"):
		return p.parseObjectLiteral(tok)
	case tok.typ == itemIdent && !isReservedWord(tok.val):
		return &jsast.Identifier{Pos: tok.pos, Name: tok.val}
	}
	p.unexpected(tok, "expression")
	return nil
}

func (p *parser) parseFunctionExpression(start item) jsast.Expression {
	var id *jsast.Identifier
	if tok := p.peek(); tok.typ == itemIdent && !isReservedWord(tok.val) {
		p.next()
		id = &jsast.Identifier{Pos: tok.pos, Name: tok.val}
	}
	params := p.parseParams()
	body := p.parseBlock()
	return &jsast.FunctionExpression{Pos: start.pos, Id: id, Params: params, Body: body}
}

func (p *parser) parseArrayLiteral(start item) jsast.Expression {
	a := &jsast.ArrayExpression{Pos: start.pos}
	for !is(p.peek(), "]") {
		if is(p.peek(), ",") {
			p.next()
			a.Elements = append(a.Elements, nil)
			continue
		}
		a.Elements = append(a.Elements, p.parseAssign())
		if is(p.peek(), ",") {
			p.next()
			continue
		}
		break
	}
	p.expectPunct("]", "array literal")
	return a
}

func (p *parser) parseObjectLiteral(start item) jsast.Expression {
	o := &jsast.ObjectExpression{Pos: start.pos}
	for !is(p.peek(), "}") {
		propStart := p.peek()
		var key jsast.Expression
		computed := false
		switch {
		case is(propStart, "["):
			p.next()
			key = p.parseAssign()
			p.expectPunct("]", "computed property key")
			computed = true
		case propStart.typ == itemString:
			p.next()
			s, _ := unquote(propStart.val)
			key = &jsast.Literal{Pos: propStart.pos, Value: s, Raw: propStart.val}
		case propStart.typ == itemNumber:
			p.next()
			f, _ := parseNumber(propStart.val)
			key = &jsast.Literal{Pos: propStart.pos, Value: f, Raw: propStart.val}
		default:
			p.next()
			key = &jsast.Identifier{Pos: propStart.pos, Name: propStart.val}
		}
		p.expectPunct(":", "object literal")
		val := p.parseAssign()
		o.Properties = append(o.Properties, &jsast.Property{Pos: propStart.pos, Key: key, Value: val,
			Computed: computed, Kind: "init"})
		if is(p.peek(), ",") {
			p.next()
			continue
		}
		break
	}
	p.expectPunct("}", "object literal")
	return o
}

func parseNumber(s string) (float64, error) {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		return float64(n), err
	}
	return strconv.ParseFloat(s, 64)
}

func unquote(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("malformed string literal")
	}
	inner := s[1 : len(s)-1]
	// Reuse Go's double-quoted escape rules; JS's superset (e.g. \0, \xNN)
	// overlaps closely enough for the obfuscated input this engine targets.
	quoted := `"` + inner + `"`
	return strconv.Unquote(quoted)
}

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "continue": true, "debugger": true,
	"default": true, "delete": true, "do": true, "else": true, "finally": true,
	"for": true, "function": true, "if": true, "in": true, "instanceof": true,
	"new": true, "return": true, "switch": true, "this": true, "throw": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"true": true, "false": true, "null": true, "let": true, "const": true,
}

func isReservedWord(s string) bool { return reservedWords[s] }
