package jsast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// PrintOptions mirrors the subset of a real generator's flags this engine
// relies on (spec.md's "generate(ast, {compact, minified, ...})"): Compact
// drops most whitespace, Indent controls indentation when not compact.
type PrintOptions struct {
	Compact bool
	Indent  string // default "  " when empty and !Compact
}

// Generate renders n back to JavaScript source text. It is the inverse of
// jsparse.Parse up to whitespace and comment placement.
func Generate(n Node, opts PrintOptions) string {
	if opts.Indent == "" && !opts.Compact {
		opts.Indent = "  "
	}
	p := &printer{opts: opts}
	switch x := n.(type) {
	case *Program:
		for _, s := range x.Body {
			p.stmt(s, 0)
		}
	case Statement:
		p.stmt(x, 0)
	case Expression:
		p.expr(x)
	}
	return p.buf.String()
}

type printer struct {
	buf  bytes.Buffer
	opts PrintOptions
}

func (p *printer) nl() {
	if !p.opts.Compact {
		p.buf.WriteByte('\n')
	}
}

func (p *printer) pad(depth int) {
	if p.opts.Compact {
		return
	}
	for i := 0; i < depth; i++ {
		p.buf.WriteString(p.opts.Indent)
	}
}

func (p *printer) write(s string) { p.buf.WriteString(s) }

func (p *printer) comments(c Comments, depth int) {
	for _, text := range c.Leading {
		p.pad(depth)
		p.write("// ")
		p.write(text)
		p.nl()
	}
}

// stmt prints a single statement at the given indentation depth.
func (p *printer) stmt(s Statement, depth int) {
	switch x := s.(type) {
	case *ExpressionStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.expr(x.Expr)
		p.write(";")
		p.nl()
	case *BlockStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("{")
		p.nl()
		for _, st := range x.Body {
			p.stmt(st, depth+1)
		}
		p.pad(depth)
		p.write("}")
		p.nl()
	case *EmptyStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write(";")
		p.nl()
	case *DebuggerStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("debugger;")
		p.nl()
	case *VariableDeclaration:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write(x.Kind)
		p.write(" ")
		for i, d := range x.Declarations {
			if i > 0 {
				p.write(", ")
			}
			p.write(d.Id.Name)
			if d.Init != nil {
				p.write("=")
				p.expr(d.Init)
			}
		}
		p.write(";")
		p.nl()
	case *FunctionDeclaration:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("function ")
		if x.Id != nil {
			p.write(x.Id.Name)
		}
		p.params(x.Params)
		p.write(" ")
		p.stmt(x.Body, depth)
	case *ReturnStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("return")
		if x.Argument != nil {
			p.write(" ")
			p.expr(x.Argument)
		}
		p.write(";")
		p.nl()
	case *IfStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("if(")
		p.expr(x.Test)
		p.write(")")
		p.blockOrInline(x.Consequent, depth)
		if x.Alternate != nil {
			p.pad(depth)
			p.write("else")
			if _, ok := x.Alternate.(*BlockStatement); !ok && p.opts.Compact {
				p.write(" ")
			}
			p.blockOrInline(x.Alternate, depth)
		}
	case *ForStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("for(")
		switch init := x.Init.(type) {
		case nil:
		case *VariableDeclaration:
			p.write(init.Kind)
			p.write(" ")
			for i, d := range init.Declarations {
				if i > 0 {
					p.write(", ")
				}
				p.write(d.Id.Name)
				if d.Init != nil {
					p.write("=")
					p.expr(d.Init)
				}
			}
		case Expression:
			p.expr(init)
		}
		p.write(";")
		if x.Test != nil {
			p.expr(x.Test)
		}
		p.write(";")
		if x.Update != nil {
			p.expr(x.Update)
		}
		p.write(")")
		p.blockOrInline(x.Body, depth)
	case *ForInStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("for(")
		switch left := x.Left.(type) {
		case *VariableDeclaration:
			p.write(left.Kind + " " + left.Declarations[0].Id.Name)
		case Expression:
			p.expr(left)
		}
		p.write(" in ")
		p.expr(x.Right)
		p.write(")")
		p.blockOrInline(x.Body, depth)
	case *WhileStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("while(")
		p.expr(x.Test)
		p.write(")")
		p.blockOrInline(x.Body, depth)
	case *DoWhileStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("do")
		p.blockOrInline(x.Body, depth)
		p.pad(depth)
		p.write("while(")
		p.expr(x.Test)
		p.write(");")
		p.nl()
	case *SwitchStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("switch(")
		p.expr(x.Discriminant)
		p.write("){")
		p.nl()
		for _, c := range x.Cases {
			p.pad(depth + 1)
			if c.Test != nil {
				p.write("case ")
				p.expr(c.Test)
				p.write(":")
			} else {
				p.write("default:")
			}
			p.nl()
			for _, st := range c.Consequent {
				p.stmt(st, depth+2)
			}
		}
		p.pad(depth)
		p.write("}")
		p.nl()
	case *BreakStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("break")
		if x.Label != nil {
			p.write(" " + x.Label.Name)
		}
		p.write(";")
		p.nl()
	case *ContinueStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("continue")
		if x.Label != nil {
			p.write(" " + x.Label.Name)
		}
		p.write(";")
		p.nl()
	case *ThrowStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("throw ")
		p.expr(x.Argument)
		p.write(";")
		p.nl()
	case *TryStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write("try")
		p.stmt(x.Block, depth)
		if x.Handler != nil {
			p.pad(depth)
			p.write("catch(")
			if x.Handler.Param != nil {
				p.write(x.Handler.Param.Name)
			}
			p.write(")")
			p.stmt(x.Handler.Body, depth)
		}
		if x.Finalizer != nil {
			p.pad(depth)
			p.write("finally")
			p.stmt(x.Finalizer, depth)
		}
	case *LabeledStatement:
		p.comments(x.Comments, depth)
		p.pad(depth)
		p.write(x.Label.Name + ": ")
		p.stmt(x.Body, depth)
	default:
		p.pad(depth)
		p.write(fmt.Sprintf("/* unknown statement %T */;", s))
		p.nl()
	}
}

// blockOrInline prints the body of an if/for/while arm, adding a block
// wrapper only when the generator already has one.
func (p *printer) blockOrInline(s Statement, depth int) {
	if _, ok := s.(*BlockStatement); ok {
		p.stmt(s, depth)
		return
	}
	p.nl()
	p.stmt(s, depth+1)
}

func (p *printer) params(params []*Identifier) {
	p.write("(")
	for i, id := range params {
		if i > 0 {
			p.write(", ")
		}
		p.write(id.Name)
	}
	p.write(")")
}

func (p *printer) expr(e Expression) {
	switch x := e.(type) {
	case *Identifier:
		p.write(x.Name)
	case *Literal:
		p.write(literalRaw(x))
	case *ThisExpression:
		p.write("this")
	case *ArrayExpression:
		p.write("[")
		for i, el := range x.Elements {
			if i > 0 {
				p.write(",")
			}
			if el != nil {
				p.expr(el)
			}
		}
		p.write("]")
	case *ObjectExpression:
		p.write("{")
		for i, prop := range x.Properties {
			if i > 0 {
				p.write(",")
			}
			if prop.Computed {
				p.write("[")
				p.expr(prop.Key)
				p.write("]")
			} else if id, ok := prop.Key.(*Identifier); ok {
				p.write(id.Name)
			} else {
				p.expr(prop.Key)
			}
			p.write(":")
			p.expr(prop.Value)
		}
		p.write("}")
	case *FunctionExpression:
		p.write("function ")
		if x.Id != nil {
			p.write(x.Id.Name)
		}
		p.params(x.Params)
		p.write(" ")
		p.stmt(x.Body, 0)
	case *UnaryExpression:
		if x.Prefix {
			p.write(x.Operator)
			if isWordOperator(x.Operator) {
				p.write(" ")
			}
			p.exprParen(x.Argument, 14)
		} else {
			p.exprParen(x.Argument, 15)
			p.write(x.Operator)
		}
	case *UpdateExpression:
		if x.Prefix {
			p.write(x.Operator)
			p.exprParen(x.Argument, 15)
		} else {
			p.exprParen(x.Argument, 15)
			p.write(x.Operator)
		}
	case *BinaryExpression:
		p.exprParen(x.Left, binaryPrec(x.Operator))
		p.write(x.Operator)
		p.exprParen(x.Right, binaryPrec(x.Operator)+1)
	case *LogicalExpression:
		p.exprParen(x.Left, binaryPrec(x.Operator))
		p.write(x.Operator)
		p.exprParen(x.Right, binaryPrec(x.Operator)+1)
	case *AssignmentExpression:
		p.expr(x.Left)
		p.write(x.Operator)
		p.expr(x.Right)
	case *MemberExpression:
		p.exprParen(x.Object, 18)
		if x.Computed {
			p.write("[")
			p.expr(x.Property)
			p.write("]")
		} else {
			p.write(".")
			p.expr(x.Property)
		}
	case *ConditionalExpression:
		p.exprParen(x.Test, 4)
		p.write("?")
		p.expr(x.Consequent)
		p.write(":")
		p.expr(x.Alternate)
	case *CallExpression:
		p.exprParen(x.Callee, 18)
		p.args(x.Arguments)
	case *NewExpression:
		p.write("new ")
		p.exprParen(x.Callee, 18)
		p.args(x.Arguments)
	case *SequenceExpression:
		for i, se := range x.Expressions {
			if i > 0 {
				p.write(",")
			}
			p.expr(se)
		}
	default:
		p.write(fmt.Sprintf("/* unknown expr %T */", e))
	}
}

func (p *printer) args(args []Expression) {
	p.write("(")
	for i, a := range args {
		if i > 0 {
			p.write(",")
		}
		p.expr(a)
	}
	p.write(")")
}

// exprParen prints e, wrapping it in parens when its own precedence is
// lower than minPrec (a conservative approximation sufficient to keep the
// reprinted tree semantically identical; it may over-parenthesize).
func (p *printer) exprParen(e Expression, minPrec int) {
	if exprPrec(e) < minPrec {
		p.write("(")
		p.expr(e)
		p.write(")")
		return
	}
	p.expr(e)
}

func exprPrec(e Expression) int {
	switch x := e.(type) {
	case *Identifier, *Literal, *ThisExpression, *ArrayExpression, *ObjectExpression,
		*CallExpression, *NewExpression, *MemberExpression, *FunctionExpression:
		return 18
	case *UpdateExpression:
		return 15
	case *UnaryExpression:
		return 14
	case *BinaryExpression:
		return binaryPrec(x.Operator)
	case *LogicalExpression:
		return binaryPrec(x.Operator)
	case *ConditionalExpression:
		return 4
	case *AssignmentExpression:
		return 3
	case *SequenceExpression:
		return 0
	}
	return 18
}

func isWordOperator(op string) bool {
	return op == "typeof" || op == "void" || op == "delete"
}

var binaryPrecedence = map[string]int{
	"*": 13, "/": 13, "%": 13,
	"+": 12, "-": 12,
	"<<": 11, ">>": 11, ">>>": 11,
	"<": 10, "<=": 10, ">": 10, ">=": 10, "in": 10, "instanceof": 10,
	"==": 9, "!=": 9, "===": 9, "!==": 9,
	"&": 8, "^": 7, "|": 6,
	"&&": 5, "||": 4,
}

func binaryPrec(op string) int {
	if p, ok := binaryPrecedence[op]; ok {
		return p
	}
	return 10
}

// literalRaw renders a Literal's value, dropping its original raw
// representation so hex/octal escapes canonicalize to decimal/plain
// quoting (spec.md's string-hex canonicaliser, §4.4).
func literalRaw(l *Literal) string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case string:
		return strconv.Quote(v)
	default:
		return l.Raw
	}
}

func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Go renders exponents as "1e+21", the same as JS, so the text is
	// used as-is; negative zero is printed as "-0".
	return strings.TrimSuffix(s, "")
}
