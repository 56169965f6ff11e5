package jsast

// Clone returns a deep copy of n, suitable for splicing a value recorded
// in an ObjectIndex or substituted by the constant inliner into a second
// location in the tree without aliasing the original node.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	switch x := n.(type) {
	case *Identifier:
		c := *x
		return &c
	case *Literal:
		c := *x
		return &c
	case *ThisExpression:
		c := *x
		return &c
	case *ArrayExpression:
		c := &ArrayExpression{Pos: x.Pos}
		for _, e := range x.Elements {
			if e == nil {
				c.Elements = append(c.Elements, nil)
				continue
			}
			c.Elements = append(c.Elements, CloneExpr(e))
		}
		return c
	case *Property:
		return &Property{Pos: x.Pos, Key: CloneExpr(x.Key), Value: CloneExpr(x.Value),
			Computed: x.Computed, Kind: x.Kind}
	case *ObjectExpression:
		c := &ObjectExpression{Pos: x.Pos}
		for _, p := range x.Properties {
			c.Properties = append(c.Properties, Clone(p).(*Property))
		}
		return c
	case *FunctionExpression:
		c := &FunctionExpression{Pos: x.Pos, Body: Clone(x.Body).(*BlockStatement)}
		if x.Id != nil {
			c.Id = Clone(x.Id).(*Identifier)
		}
		for _, p := range x.Params {
			c.Params = append(c.Params, Clone(p).(*Identifier))
		}
		return c
	case *UnaryExpression:
		return &UnaryExpression{Pos: x.Pos, Operator: x.Operator, Prefix: x.Prefix,
			Argument: CloneExpr(x.Argument)}
	case *UpdateExpression:
		return &UpdateExpression{Pos: x.Pos, Operator: x.Operator, Prefix: x.Prefix,
			Argument: CloneExpr(x.Argument)}
	case *BinaryExpression:
		return &BinaryExpression{Pos: x.Pos, Operator: x.Operator,
			Left: CloneExpr(x.Left), Right: CloneExpr(x.Right)}
	case *LogicalExpression:
		return &LogicalExpression{Pos: x.Pos, Operator: x.Operator,
			Left: CloneExpr(x.Left), Right: CloneExpr(x.Right)}
	case *AssignmentExpression:
		return &AssignmentExpression{Pos: x.Pos, Operator: x.Operator,
			Left: CloneExpr(x.Left), Right: CloneExpr(x.Right)}
	case *MemberExpression:
		return &MemberExpression{Pos: x.Pos, Object: CloneExpr(x.Object),
			Property: CloneExpr(x.Property), Computed: x.Computed}
	case *ConditionalExpression:
		return &ConditionalExpression{Pos: x.Pos, Test: CloneExpr(x.Test),
			Consequent: CloneExpr(x.Consequent), Alternate: CloneExpr(x.Alternate)}
	case *CallExpression:
		c := &CallExpression{Pos: x.Pos, Callee: CloneExpr(x.Callee)}
		for _, a := range x.Arguments {
			c.Arguments = append(c.Arguments, CloneExpr(a))
		}
		return c
	case *NewExpression:
		c := &NewExpression{Pos: x.Pos, Callee: CloneExpr(x.Callee)}
		for _, a := range x.Arguments {
			c.Arguments = append(c.Arguments, CloneExpr(a))
		}
		return c
	case *SequenceExpression:
		c := &SequenceExpression{Pos: x.Pos}
		for _, e := range x.Expressions {
			c.Expressions = append(c.Expressions, CloneExpr(e))
		}
		return c

	case *ExpressionStatement:
		return &ExpressionStatement{Pos: x.Pos, Comments: x.Comments, Expr: CloneExpr(x.Expr)}
	case *BlockStatement:
		c := &BlockStatement{Pos: x.Pos, Comments: x.Comments}
		for _, s := range x.Body {
			c.Body = append(c.Body, CloneStmt(s))
		}
		return c
	case *EmptyStatement:
		c := *x
		return &c
	case *DebuggerStatement:
		c := *x
		return &c
	case *VariableDeclarator:
		c := &VariableDeclarator{Pos: x.Pos, Id: Clone(x.Id).(*Identifier)}
		if x.Init != nil {
			c.Init = CloneExpr(x.Init)
		}
		return c
	case *VariableDeclaration:
		c := &VariableDeclaration{Pos: x.Pos, Comments: x.Comments, Kind: x.Kind}
		for _, d := range x.Declarations {
			c.Declarations = append(c.Declarations, Clone(d).(*VariableDeclarator))
		}
		return c
	case *FunctionDeclaration:
		c := &FunctionDeclaration{Pos: x.Pos, Comments: x.Comments,
			Id: Clone(x.Id).(*Identifier), Body: Clone(x.Body).(*BlockStatement)}
		for _, p := range x.Params {
			c.Params = append(c.Params, Clone(p).(*Identifier))
		}
		return c
	case *ReturnStatement:
		c := &ReturnStatement{Pos: x.Pos, Comments: x.Comments}
		if x.Argument != nil {
			c.Argument = CloneExpr(x.Argument)
		}
		return c
	case *IfStatement:
		c := &IfStatement{Pos: x.Pos, Comments: x.Comments, Test: CloneExpr(x.Test),
			Consequent: CloneStmt(x.Consequent)}
		if x.Alternate != nil {
			c.Alternate = CloneStmt(x.Alternate)
		}
		return c
	case *ForStatement:
		c := &ForStatement{Pos: x.Pos, Comments: x.Comments, Body: CloneStmt(x.Body)}
		if x.Init != nil {
			c.Init = cloneForHead(x.Init)
		}
		if x.Test != nil {
			c.Test = CloneExpr(x.Test)
		}
		if x.Update != nil {
			c.Update = CloneExpr(x.Update)
		}
		return c
	case *ForInStatement:
		return &ForInStatement{Pos: x.Pos, Comments: x.Comments,
			Left: cloneForHead(x.Left), Right: CloneExpr(x.Right), Body: CloneStmt(x.Body)}
	case *WhileStatement:
		return &WhileStatement{Pos: x.Pos, Comments: x.Comments, Test: CloneExpr(x.Test), Body: CloneStmt(x.Body)}
	case *DoWhileStatement:
		return &DoWhileStatement{Pos: x.Pos, Comments: x.Comments, Body: CloneStmt(x.Body), Test: CloneExpr(x.Test)}
	case *SwitchCase:
		c := &SwitchCase{Pos: x.Pos}
		if x.Test != nil {
			c.Test = CloneExpr(x.Test)
		}
		for _, s := range x.Consequent {
			c.Consequent = append(c.Consequent, CloneStmt(s))
		}
		return c
	case *SwitchStatement:
		c := &SwitchStatement{Pos: x.Pos, Comments: x.Comments, Discriminant: CloneExpr(x.Discriminant)}
		for _, cs := range x.Cases {
			c.Cases = append(c.Cases, Clone(cs).(*SwitchCase))
		}
		return c
	case *BreakStatement:
		c := &BreakStatement{Pos: x.Pos, Comments: x.Comments}
		if x.Label != nil {
			c.Label = Clone(x.Label).(*Identifier)
		}
		return c
	case *ContinueStatement:
		c := &ContinueStatement{Pos: x.Pos, Comments: x.Comments}
		if x.Label != nil {
			c.Label = Clone(x.Label).(*Identifier)
		}
		return c
	case *ThrowStatement:
		return &ThrowStatement{Pos: x.Pos, Comments: x.Comments, Argument: CloneExpr(x.Argument)}
	case *CatchClause:
		c := &CatchClause{Pos: x.Pos, Body: Clone(x.Body).(*BlockStatement)}
		if x.Param != nil {
			c.Param = Clone(x.Param).(*Identifier)
		}
		return c
	case *TryStatement:
		c := &TryStatement{Pos: x.Pos, Comments: x.Comments, Block: Clone(x.Block).(*BlockStatement)}
		if x.Handler != nil {
			c.Handler = Clone(x.Handler).(*CatchClause)
		}
		if x.Finalizer != nil {
			c.Finalizer = Clone(x.Finalizer).(*BlockStatement)
		}
		return c
	case *LabeledStatement:
		return &LabeledStatement{Pos: x.Pos, Comments: x.Comments, Label: x.Label, Body: CloneStmt(x.Body)}
	case *Program:
		c := &Program{Pos: x.Pos}
		for _, s := range x.Body {
			c.Body = append(c.Body, CloneStmt(s))
		}
		return c
	}
	return n
}

// CloneExpr clones an Expression without the caller needing a type assertion.
func CloneExpr(e Expression) Expression {
	if e == nil {
		return nil
	}
	return Clone(e).(Expression)
}

// CloneStmt clones a Statement without the caller needing a type assertion.
func CloneStmt(s Statement) Statement {
	if s == nil {
		return nil
	}
	return Clone(s).(Statement)
}

// cloneForHead clones the Init of a ForStatement or the Left of a
// ForInStatement, which may be either a *VariableDeclaration or an
// Expression.
func cloneForHead(n Node) Node {
	if decl, ok := n.(*VariableDeclaration); ok {
		return Clone(decl)
	}
	return CloneExpr(n.(Expression))
}
