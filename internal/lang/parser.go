package lang

import (
	"strconv"
	"strings"
)

// Parse parses a bare pipeline: `source | op | op | ...` (spec §4.1).
// On failure it returns a *ParseErrors; it never returns a partial CST.
func Parse(input string) (*Query, error) {
	p := newParser(input)
	q := p.parseQuery()
	if p.errors.HasErrors() {
		return nil, p.errors
	}
	return q, nil
}

// ParseStatement parses either a bare pipeline or a `create flow ...`
// declaration (spec §4.12, §6).
func ParseStatement(input string) (*TopLevel, error) {
	p := newParser(input)
	if p.cur.Type == CREATE {
		decl := p.parseFlowDecl()
		if p.errors.HasErrors() {
			return nil, p.errors
		}
		return &TopLevel{Flow: decl}, nil
	}
	q := p.parseQuery()
	if p.errors.HasErrors() {
		return nil, p.errors
	}
	return &TopLevel{Pipeline: q}, nil
}

type parser struct {
	l       Lexer
	cur     Token
	peek    Token
	errors  *ParseErrors
}

func newParser(input string) *parser {
	p := &parser{l: NewLexer(input), errors: &ParseErrors{}}
	p.advance()
	p.advance()
	return p
}

func (p *parser) advance() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *parser) errorf(msg string) {
	p.errors.Add(msg, p.cur.Pos, p.cur.Literal)
}

func (p *parser) expect(tt TokenType, msg string) bool {
	if p.cur.Type != tt {
		p.errorf(msg)
		return false
	}
	return true
}

// ---- top level ----

func (p *parser) parseFlowDecl() *FlowDecl {
	decl := &FlowDecl{Pos: p.cur.Pos}
	p.advance() // consume CREATE
	if !p.expect(FLOW, "expected 'flow' after 'create'") {
		return decl
	}
	p.advance()
	if !p.expect(IDENT, "expected flow name") {
		return decl
	}
	decl.Name = p.cur.Literal
	p.advance()
	if p.cur.Type == TTL {
		p.advance()
		if !p.expect(LPAREN, "expected '(' after 'ttl'") {
			return decl
		}
		p.advance()
		if p.cur.Type != NUMBER && p.cur.Type != IDENT {
			p.errorf("expected duration literal inside ttl(...)")
		} else {
			decl.TTL = p.cur.Literal
			if p.cur.Type == NUMBER && p.peek.Type == IDENT {
				// A duration such as 5m lexes as NUMBER "5" then IDENT "m".
				p.advance()
				decl.TTL += p.cur.Literal
			}
			p.advance()
		}
		if !p.expect(RPAREN, "expected ')' to close ttl(...)") {
			return decl
		}
		p.advance()
	}
	if !p.expect(AS, "expected 'as' before flow pipeline") {
		return decl
	}
	p.advance()
	decl.Pipeline = p.parseQuery()
	return decl
}

func (p *parser) parseQuery() *Query {
	q := &Query{Pos: p.cur.Pos}
	if !p.expect(IDENT, "expected source stream name") {
		return q
	}
	q.Source = p.cur.Literal
	p.advance()
	for p.cur.Type == PIPE {
		p.advance()
		op := p.parseOperation()
		if op != nil {
			q.Ops = append(q.Ops, op)
		}
		if p.errors.HasErrors() {
			return q
		}
	}
	if p.cur.Type == SEMICOLON {
		p.advance()
	}
	if p.cur.Type != EOF {
		p.errorf("unexpected trailing input")
	}
	return q
}

func (p *parser) parseOperation() Operation {
	switch p.cur.Type {
	case WHERE:
		return p.parseWhere()
	case SELECT:
		return p.parseSelect()
	case SCAN:
		return p.parseScan()
	case SUMMARIZE:
		return p.parseSummarize()
	case INSERT_INTO:
		return p.parseInsertInto()
	case COLLECT:
		op := &CollectOp{Pos: p.cur.Pos}
		p.advance()
		return op
	default:
		p.errorf("unknown operator; expected one of where, select, scan, summarize, insert_into, collect")
		return nil
	}
}

func (p *parser) parseWhere() Operation {
	op := &WhereOp{Pos: p.cur.Pos}
	p.advance()
	op.Cond = p.parseExpression()
	return op
}

func (p *parser) parseSelect() Operation {
	op := &SelectOp{Pos: p.cur.Pos}
	p.advance()
	if !p.expect(LBRACE, "expected '{' after select") {
		return op
	}
	op.Obj = p.parseObjectLit()
	return op
}

func (p *parser) parseObjectLit() *ObjectLit {
	obj := &ObjectLit{Pos: p.cur.Pos}
	p.advance() // consume '{'
	for p.cur.Type != RBRACE && p.cur.Type != EOF {
		entry := p.parseObjectEntry()
		obj.Entries = append(obj.Entries, entry)
		if p.cur.Type == COMMA {
			p.advance()
			continue
		}
		break
	}
	if !p.expect(RBRACE, "expected '}' to close object literal") {
		return obj
	}
	p.advance()
	return obj
}

func (p *parser) parseObjectEntry() ObjectEntry {
	pos := p.cur.Pos
	if p.cur.Type == MINUS {
		p.advance()
		name := p.cur.Literal
		if p.cur.Type != IDENT {
			p.errorf("expected identifier after '-' in object literal")
		}
		p.advance()
		return ObjectEntry{Exclude: name, Pos: pos}
	}
	if p.cur.Type == ELLIPSIS {
		p.advance()
		return ObjectEntry{Spread: p.parseExpression(), Pos: pos}
	}
	// Any identifier-shaped token (including keywords) may be a key,
	// per spec §4.2 ("Keywords may appear as object keys").
	key := p.cur.Literal
	if key == "" {
		p.errorf("expected object key")
		return ObjectEntry{Pos: pos}
	}
	p.advance()
	if p.cur.Type == COLON {
		p.advance()
		return ObjectEntry{Key: key, Value: p.parseExpression(), Pos: pos}
	}
	// Shorthand `{ name }` == `{ name: name }` (spec §4.6 example 2).
	return ObjectEntry{Key: key, Value: &Ident{Name: key, Pos: pos}, Pos: pos}
}

func (p *parser) parseScan() Operation {
	op := &ScanOp{Pos: p.cur.Pos}
	p.advance()
	if !p.expect(LPAREN, "expected '(' after scan") {
		return op
	}
	p.advance()
	for p.cur.Type == STEP {
		op.Steps = append(op.Steps, p.parseStepDef())
		if p.cur.Type == SEMICOLON {
			p.advance()
		} else {
			break
		}
	}
	if !p.expect(RPAREN, "expected ')' to close scan(...)") {
		return op
	}
	p.advance()
	return op
}

func (p *parser) parseStepDef() *StepDef {
	step := &StepDef{Pos: p.cur.Pos}
	p.advance() // consume 'step'
	if !p.expect(IDENT, "expected step name") {
		return step
	}
	step.Name = p.cur.Literal
	p.advance()
	if !p.expect(COLON, "expected ':' after step name") {
		return step
	}
	p.advance()
	step.Cond = p.parseExpression()
	if !p.expect(ARROW, "expected '=>' after step condition") {
		return step
	}
	p.advance()
	step.Statements = append(step.Statements, p.parseStatement())
	for p.cur.Type == COMMA {
		p.advance()
		step.Statements = append(step.Statements, p.parseStatement())
	}
	return step
}

func (p *parser) parseStatement() Statement {
	pos := p.cur.Pos
	if p.cur.Type == EMIT {
		p.advance()
		if !p.expect(LPAREN, "expected '(' after emit") {
			return &EmitStmt{Pos: pos}
		}
		p.advance()
		val := p.parseExpression()
		if !p.expect(RPAREN, "expected ')' to close emit(...)") {
			return &EmitStmt{Value: val, Pos: pos}
		}
		p.advance()
		return &EmitStmt{Value: val, Pos: pos}
	}
	// lvalue := ident ('.' ident)*
	if p.cur.Type != IDENT {
		p.errorf("expected assignment target or emit(...)")
		return &AssignStmt{Pos: pos}
	}
	var sb strings.Builder
	sb.WriteString(p.cur.Literal)
	p.advance()
	for p.cur.Type == DOT {
		p.advance()
		sb.WriteByte('.')
		sb.WriteString(p.cur.Literal)
		p.advance()
	}
	if !p.expect(ASSIGN, "expected '=' in scan statement") {
		return &AssignStmt{Target: sb.String(), Pos: pos}
	}
	p.advance()
	return &AssignStmt{Target: sb.String(), Value: p.parseExpression(), Pos: pos}
}

func (p *parser) parseSummarize() Operation {
	op := &SummarizeOp{Pos: p.cur.Pos}
	p.advance()
	if !p.expect(LBRACE, "expected '{' after summarize") {
		return op
	}
	op.Agg = p.parseObjectLit()

	if p.cur.Type == BY {
		p.advance()
		op.By = append(op.By, p.parseExpression())
		for p.cur.Type == COMMA {
			p.advance()
			op.By = append(op.By, p.parseExpression())
		}
	}

	if p.cur.Type == OVER {
		p.advance()
		if !p.expect(IDENT, "expected window alias after 'over'") {
			return op
		}
		op.OverName = p.cur.Literal
		p.advance()
		if !p.expect(ASSIGN, "expected '=' after window alias") {
			return op
		}
		p.advance()
		op.Window = p.parseWindowCall()
	}

	if p.cur.Type == EMIT {
		op.Emit = p.parseEmitClause()
	}

	return op
}

func (p *parser) parseWindowCall() *WindowCall {
	wc := &WindowCall{Pos: p.cur.Pos}
	if !IsWindowKeyword(p.cur.Type) {
		p.errorf("expected a window function (tumbling_window, hopping_window, sliding_window, count_window, session_window, or a _by variant)")
		return wc
	}
	wc.Kind = p.cur.Type
	p.advance()
	if !p.expect(LPAREN, "expected '(' after window function name") {
		return wc
	}
	p.advance()
	if p.cur.Type != RPAREN {
		wc.Args = append(wc.Args, p.parseExpression())
		for p.cur.Type == COMMA {
			p.advance()
			wc.Args = append(wc.Args, p.parseExpression())
		}
	}
	if !p.expect(RPAREN, "expected ')' to close window call") {
		return wc
	}
	p.advance()
	return wc
}

func (p *parser) parseEmitClause() *EmitClause {
	ec := &EmitClause{Pos: p.cur.Pos}
	p.advance() // consume EMIT
	switch p.cur.Type {
	case EVERY:
		p.advance()
		ec.Every = p.parseExpression()
	case ON:
		p.advance()
		switch p.cur.Type {
		case CHANGE:
			p.advance()
			if !(p.cur.Type == IDENT && strings.EqualFold(p.cur.Literal, "of")) {
				p.errorf("expected 'of' after 'on change'")
				return ec
			}
			p.advance()
			if !p.expect(IDENT, "expected field name after 'on change of'") {
				return ec
			}
			ec.OnChangeOf = p.cur.Literal
			p.advance()
		case GROUP:
			p.advance()
			if !p.expect(CHANGE, "expected 'change' after 'on group'") {
				return ec
			}
			p.advance()
			ec.OnGroupChange = true
		case UPDATE:
			p.advance()
			ec.OnUpdate = true
		default:
			p.errorf("expected 'change', 'group change', or 'update' after 'emit on'")
		}
	default:
		p.errorf("expected 'every' or 'on' after 'emit'")
	}
	return ec
}

func (p *parser) parseInsertInto() Operation {
	op := &InsertIntoOp{Pos: p.cur.Pos}
	p.advance()
	if !p.expect(LPAREN, "expected '(' after insert_into") {
		return op
	}
	p.advance()
	if !p.expect(IDENT, "expected sink stream name") {
		return op
	}
	op.Stream = p.cur.Literal
	p.advance()
	if !p.expect(RPAREN, "expected ')' to close insert_into(...)") {
		return op
	}
	p.advance()
	return op
}

// ---- expressions ----
// Precedence, low to high: ||, &&, comparison, additive, multiplicative,
// unary minus, primary (spec §4.1).

func (p *parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *parser) parseOr() Expr {
	left := p.parseAnd()
	for p.cur.Type == OROR {
		pos := p.cur.Pos
		p.advance()
		right := p.parseAnd()
		left = &BinaryExpr{Op: OROR, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *parser) parseAnd() Expr {
	left := p.parseComparison()
	for p.cur.Type == ANDAND {
		pos := p.cur.Pos
		p.advance()
		right := p.parseComparison()
		left = &BinaryExpr{Op: ANDAND, Left: left, Right: right, Pos: pos}
	}
	return left
}

var comparisonOps = map[TokenType]bool{EQ: true, NEQ: true, LT: true, GT: true, LE: true, GE: true}

func (p *parser) parseComparison() Expr {
	left := p.parseAdditive()
	for comparisonOps[p.cur.Type] {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseAdditive()
		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.cur.Type == PLUS || p.cur.Type == MINUS {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseMultiplicative()
		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.cur.Type == ASTERISK || p.cur.Type == SLASH {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseUnary()
		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *parser) parseUnary() Expr {
	if p.cur.Type == MINUS {
		pos := p.cur.Pos
		p.advance()
		return &UnaryExpr{Op: MINUS, Operand: p.parseUnary(), Pos: pos}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(expr Expr) Expr {
	for {
		switch p.cur.Type {
		case DOT:
			pos := p.cur.Pos
			p.advance()
			name := p.cur.Literal
			p.advance()
			expr = &FieldAccess{Base: expr, Name: name, Pos: pos}
		case LBRACKET:
			pos := p.cur.Pos
			p.advance()
			idx := p.parseExpression()
			if p.expect(RBRACKET, "expected ']' to close index expression") {
				p.advance()
			}
			expr = &IndexAccess{Base: expr, Index: idx, Pos: pos}
		default:
			return expr
		}
	}
}

func (p *parser) parsePrimary() Expr {
	pos := p.cur.Pos
	switch p.cur.Type {
	case NUMBER:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			p.errorf("invalid number literal")
		}
		p.advance()
		return &NumberLit{Value: v, Pos: pos}
	case STRING:
		v := p.cur.Literal
		p.advance()
		return &StringLit{Value: v, Pos: pos}
	case TRUE:
		p.advance()
		return &BoolLit{Value: true, Pos: pos}
	case FALSE:
		p.advance()
		return &BoolLit{Value: false, Pos: pos}
	case NULL:
		p.advance()
		return &NullLit{Pos: pos}
	case LPAREN:
		p.advance()
		inner := p.parseExpression()
		if p.expect(RPAREN, "expected ')' to close parenthesized expression") {
			p.advance()
		}
		return &ParenExpr{Inner: inner, Pos: pos}
	case LBRACE:
		return p.parseObjectLit()
	case LBRACKET:
		return p.parseArrayLit()
	case ELLIPSIS:
		p.advance()
		return &SpreadExpr{Inner: p.parseExpression(), Pos: pos}
	case IFF:
		p.advance()
		if !p.expect(LPAREN, "expected '(' after iff") {
			return &IffExpr{Pos: pos}
		}
		p.advance()
		cond := p.parseExpression()
		if !p.expect(COMMA, "expected ',' after iff condition") {
			return &IffExpr{Cond: cond, Pos: pos}
		}
		p.advance()
		then := p.parseExpression()
		if !p.expect(COMMA, "expected ',' after iff then-branch") {
			return &IffExpr{Cond: cond, Then: then, Pos: pos}
		}
		p.advance()
		els := p.parseExpression()
		if p.expect(RPAREN, "expected ')' to close iff(...)") {
			p.advance()
		}
		return &IffExpr{Cond: cond, Then: then, Else: els, Pos: pos}
	case IDENT:
		name := p.cur.Literal
		p.advance()
		if p.cur.Type == LPAREN {
			p.advance()
			var args []Expr
			if p.cur.Type != RPAREN {
				args = append(args, p.parseExpression())
				for p.cur.Type == COMMA {
					p.advance()
					args = append(args, p.parseExpression())
				}
			}
			if p.expect(RPAREN, "expected ')' to close function call") {
				p.advance()
			}
			return &CallExpr{Name: name, Args: args, Pos: pos}
		}
		return &Ident{Name: name, Pos: pos}
	default:
		p.errorf("unexpected token in expression")
		p.advance()
		return &NullLit{Pos: pos}
	}
}

// parseArrayLit parses `[expr, expr, ...]`, elements may include spreads.
func (p *parser) parseArrayLit() Expr {
	arr := &ArrayLit{Pos: p.cur.Pos}
	p.advance() // consume '['
	for p.cur.Type != RBRACKET && p.cur.Type != EOF {
		arr.Elements = append(arr.Elements, p.parseExpression())
		if p.cur.Type == COMMA {
			p.advance()
			continue
		}
		break
	}
	if p.expect(RBRACKET, "expected ']' to close array literal") {
		p.advance()
	}
	return arr
}
