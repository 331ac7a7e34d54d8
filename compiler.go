package loxx

import (
	"fmt"
	"os"
	"strconv"
)

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFunction func(c *compiler, canAssign bool)

type parseRule struct {
	nud parseFunction
	led parseFunction
	precedence
}

var rules [tokensCount]parseRule

func init() {
	rules[tokenLeftParen] = parseRule{grouping, call, precCall}       // (
	rules[tokenMinus] = parseRule{unary, binary, precTerm}            // -
	rules[tokenPlus] = parseRule{nil, binary, precTerm}               // +
	rules[tokenSlash] = parseRule{nil, binary, precFactor}            // /
	rules[tokenStar] = parseRule{nil, binary, precFactor}             // *
	rules[tokenBang] = parseRule{unary, nil, precNone}                // !
	rules[tokenBangEqual] = parseRule{nil, binary, precEquality}      // !=
	rules[tokenEqualEqual] = parseRule{nil, binary, precEquality}     // ==
	rules[tokenGreater] = parseRule{nil, binary, precComparison}      // >
	rules[tokenGreaterEqual] = parseRule{nil, binary, precComparison} // >=
	rules[tokenLess] = parseRule{nil, binary, precComparison}         // <
	rules[tokenLessEqual] = parseRule{nil, binary, precComparison}    // <=
	rules[tokenIdentifier] = parseRule{variable, nil, precNone}       // ident
	rules[tokenString] = parseRule{string_, nil, precNone}            // "string"
	rules[tokenNumber] = parseRule{number, nil, precNone}             // 12.3
	rules[tokenAnd] = parseRule{nil, and, precAnd}                    // and
	rules[tokenFalse] = parseRule{literal, nil, precNone}             // false
	rules[tokenNil] = parseRule{literal, nil, precNone}               // nil
	rules[tokenOr] = parseRule{nil, or, precOr}                       // or
	rules[tokenTrue] = parseRule{literal, nil, precNone}              // true
}

func or(c *compiler, canAssign bool) {
	elseJump := c.emitJump(opJumpIfFalse)
	endJump := c.emitJump(opJump)
	c.patchJump(elseJump)
	c.emitByte(opPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func and(c *compiler, canAssign bool) {
	endJump := c.emitJump(opJumpIfFalse)
	c.emitByte(opPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func binary(c *compiler, canAssign bool) {
	operatorType := c.previous.tokenType
	rule := rules[operatorType]
	c.parsePrecedence(rule.precedence + 1)
	switch operatorType {
	case tokenBangEqual:
		c.emitBytes(opEqual, opNot)
	case tokenEqualEqual:
		c.emitByte(opEqual)
	case tokenGreater:
		c.emitByte(opGreater)
	case tokenGreaterEqual:
		c.emitBytes(opLess, opNot)
	case tokenLess:
		c.emitByte(opLess)
	case tokenLessEqual:
		c.emitBytes(opGreater, opNot)
	case tokenPlus:
		c.emitByte(opAdd)
	case tokenMinus:
		c.emitByte(opSubtract)
	case tokenStar:
		c.emitByte(opMultiply)
	case tokenSlash:
		c.emitByte(opDivide)
	default:
		panic("binary: unknown operator")
	}
}

func unary(c *compiler, canAssign bool) {
	operatorType := c.previous.tokenType
	c.parsePrecedence(precUnary)
	switch operatorType {
	case tokenBang:
		c.emitByte(opNot)
	case tokenMinus:
		c.emitByte(opNegate)
	default:
		panic("unary: unknown operator")
	}
}

func literal(c *compiler, canAssign bool) {
	switch c.previous.tokenType {
	case tokenNil:
		c.emitByte(opNil)
	case tokenFalse:
		c.emitByte(opFalse)
	case tokenTrue:
		c.emitByte(opTrue)
	default:
		return
	}
}

func call(c *compiler, canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(opCall, argCount)
}

func grouping(c *compiler, canAssign bool) {
	c.expression()
	c.consume(tokenRightParen, "Expect ')' after expression.")
}

func number(c *compiler, canAssign bool) {
	value, err := strconv.ParseFloat(c.previous.literal, 64)
	if err != nil {
		panic(err)
	}
	c.emitConstant(NumberValue(value))
}

func string_(c *compiler, canAssign bool) {
	raw := c.previous.literal[1 : len(c.previous.literal)-1]
	obj := c.heap.internString([]byte(raw))
	c.emitConstant(ObjValue(obj))
}

func variable(c *compiler, canAssign bool) {
	c.namedVariable(c.previous.literal, canAssign)
}

type parser struct {
	scanner
	current   token
	previous  token
	hadError  bool
	panicMode bool
}

func newParser(source []byte, cfg *Config) parser {
	p := parser{scanner: newScanner(source, cfg)}
	p.advance()
	return p
}

func (p *parser) errorAt(token *token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	fmt.Fprintf(os.Stderr, "[line %d] Error", token.line)

	switch token.tokenType {
	case tokenEof:
		fmt.Fprintf(os.Stderr, " at end")
	case tokenError:
	default:
		fmt.Fprintf(os.Stderr, " at '%s'", token.literal)
	}

	fmt.Fprintf(os.Stderr, ": %s\n", message)
	p.hadError = true
}

func (p *parser) error(message string) {
	p.errorAt(&p.previous, message)
}

func (p *parser) errorAtCurrent(message string) {
	p.errorAt(&p.current, message)
}

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.scanToken()
		if p.current.tokenType != tokenError {
			break
		}
		p.errorAtCurrent(p.current.literal)
	}
}

func (p *parser) consume(t tokenType, message string) {
	if p.current.tokenType == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) check(t tokenType) bool {
	return p.current.tokenType == t
}

func (p *parser) match(t tokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

type localVariable struct {
	name      string
	depth     int
	isUpvalue bool
}

type compilerUpvalue struct {
	index   uint8
	isLocal bool
}

type functionType int

const (
	typeScript functionType = iota
	typeFunction
)

type compiler struct {
	*parser
	heap     *Heap
	cfg      *Config
	function *Obj
	functionType
	locals     []localVariable
	upvalues   []compilerUpvalue
	enclosing  *compiler
	scopeDepth int
}

func newCompiler(source []byte, heap *Heap, cfg *Config) *compiler {
	p := newParser(source, cfg)
	return &compiler{
		parser:       &p,
		heap:         heap,
		cfg:          cfg,
		function:     heap.newFunction(),
		functionType: typeScript,
		locals:       []localVariable{{"", 0, false}},
		upvalues:     make([]compilerUpvalue, 0),
		scopeDepth:   0,
	}
}

func (c *compiler) newFunCompiler(t functionType) compiler {
	f := c.heap.newFunction()
	locals := []localVariable{{"", 0, false}}
	f.name = c.heap.internString([]byte(c.previous.literal))
	return compiler{
		parser:       c.parser,
		heap:         c.heap,
		cfg:          c.cfg,
		function:     f,
		functionType: t,
		locals:       locals,
		upvalues:     make([]compilerUpvalue, 0),
		enclosing:    c,
		scopeDepth:   0,
	}
}

func (c *compiler) compile() *Obj {
	for !c.match(tokenEof) {
		c.declaration()
	}
	if c.hadError {
		return nil
	}
	c.emitReturn()
	return c.function
}

func (c *compiler) declaration() {
	if c.match(tokenFun) {
		c.funDeclaration()
	} else if c.match(tokenVar) {
		c.varDeclaration()
	} else {
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *compiler) statement() {
	if c.match(tokenSemicolon) {
		/* pass */
	} else if c.match(tokenPrint) {
		c.printStatement()
	} else if c.match(tokenFor) {
		c.forStatement()
	} else if c.match(tokenIf) {
		c.ifStatement()
	} else if c.match(tokenReturn) {
		c.returnStatement()
	} else if c.match(tokenWhile) {
		c.whileStatement()
	} else if c.match(tokenLeftBrace) {
		c.beginScope()
		c.block()
		c.endScope()
	} else {
		c.expressionStatement()
	}
}

// declarations ============================================================== /

func (c *compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.compileFunction(typeFunction)
	c.defineVariable(global)
}

func (c *compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(tokenEqual) {
		c.expression()
	} else {
		c.emitByte(opNil)
	}
	c.consume(tokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

// statements ================================================================ /

func (c *compiler) block() {
	for !c.check(tokenRightBrace) && !c.check(tokenEof) {
		c.declaration()
	}
	c.consume(tokenRightBrace, "Expect '}' after block.")
}

// ifStatement always emits and patches the else-jump, even with no `else`
// clause, so the stack stays balanced on both branches.
func (c *compiler) ifStatement() {
	c.consume(tokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(tokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(opJumpIfFalse)
	c.emitByte(opPop)
	c.statement()

	elseJump := c.emitJump(opJump)
	c.patchJump(thenJump)
	c.emitByte(opPop)

	if c.match(tokenElse) {
		c.statement()
	}

	c.patchJump(elseJump)
}

func (c *compiler) printStatement() {
	c.expression()
	c.consume(tokenSemicolon, "Expect ';' after value.")
	c.emitByte(opPrint)
}

func (c *compiler) returnStatement() {
	if c.functionType == typeScript {
		c.error("Can't return from top-level code.")
	}

	if c.match(tokenSemicolon) {
		c.emitReturn()
	} else {
		c.expression()
		c.consume(tokenSemicolon, "Expect ';' after return value.")
		c.emitByte(opReturn)
	}
}

func (c *compiler) forStatement() {
	c.beginScope()
	c.consume(tokenLeftParen, "Expect '(' after 'for'.")
	if c.match(tokenSemicolon) {

	} else if c.match(tokenVar) {
		c.varDeclaration()
	} else {
		c.expressionStatement()
	}

	loopStart := len(c.function.fnChunk.code)
	exitJump := -1
	if !c.match(tokenSemicolon) {
		c.expression()
		c.consume(tokenSemicolon, "Expect ';' after loop condition.")

		exitJump = c.emitJump(opJumpIfFalse)
		c.emitByte(opPop)
	}

	if !c.match(tokenRightParen) {
		bodyJump := c.emitJump(opJump)
		incrementStart := len(c.function.fnChunk.code)
		c.expression()
		c.emitByte(opPop)
		c.consume(tokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(opPop)
	}

	c.endScope()
}

func (c *compiler) whileStatement() {
	loopStart := len(c.function.fnChunk.code)

	c.consume(tokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(tokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(opJumpIfFalse)
	c.emitByte(opPop)
	c.statement()

	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(opPop)
}

func (c *compiler) expressionStatement() {
	c.expression()
	c.consume(tokenSemicolon, "Expect ';' after expression.")
	c.emitByte(opPop)
}

// other ===================================================================== /

func (c *compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := rules[c.previous.tokenType].nud
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= rules[c.current.tokenType].precedence {
		c.advance()
		infixRule := rules[c.previous.tokenType].led
		infixRule(c, canAssign)
	}

	if canAssign && c.match(tokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *compiler) beginScope() { c.scopeDepth++ }

// endScope pops locals leaving scope; captured locals get OP_CLOSE_UPVALUE
// instead of a plain pop so any live closure keeps a valid copy.
func (c *compiler) endScope() {
	c.scopeDepth--

	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isUpvalue {
			c.emitByte(opCloseUpvalue)
		} else {
			c.emitByte(opPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (c *compiler) parseVariable(message string) uint8 {
	c.consume(tokenIdentifier, message)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.literal)
}

func (c *compiler) identifierConstant(name string) uint8 {
	obj := c.heap.internString([]byte(name))
	return c.makeConstant(ObjValue(obj))
}

func (c *compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *compiler) defineVariable(global uint8) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(opDefineGlobal, global)
}

func (c *compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous.literal
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.depth < c.scopeDepth && local.depth != -1 {
			break
		}
		if local.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *compiler) addLocal(name string) {
	if len(c.locals) == uint8Count {
		c.error("Too many local variables in function.")
	}
	c.locals = append(c.locals, localVariable{name, -1, false})
}

func (c *compiler) compileFunction(t functionType) {
	fc := c.newFunCompiler(t)
	fc.beginScope()

	fc.consume(tokenLeftParen, "Expect '(' after function name.")

	if !fc.check(tokenRightParen) {
		for {
			fc.function.arity++
			if fc.function.arity > 255 {
				fc.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := fc.parseVariable("Expect parameter name.")
			fc.defineVariable(constant)
			if !fc.match(tokenComma) {
				break
			}
			if c.check(tokenRightParen) {
				break
			}
		}
	}
	fc.consume(tokenRightParen, "Expect ')' after parameters.")
	fc.consume(tokenLeftBrace, "Expect '{' before function body.")
	fc.block()
	fc.emitReturn()

	fc.function.upvalueCount = len(fc.upvalues)
	c.emitBytes(opClosure, c.makeConstant(ObjValue(fc.function)))

	for i := 0; i < fc.function.upvalueCount; i++ {
		c.emitByte(boolToUint8(fc.upvalues[i].isLocal))
		c.emitByte(fc.upvalues[i].index)
	}
}

func (c *compiler) emitByte(b uint8) {
	c.function.fnChunk.writeCode(b, c.previous.line)
}

func (c *compiler) emitBytes(b1, b2 uint8) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *compiler) emitLoop(loopStart int) {
	c.emitByte(opLoop)

	offset := len(c.function.fnChunk.code) - loopStart + 2
	if offset > int(uint16Max) {
		c.error("Loop body too large.")
	}

	c.emitByte(uint8((offset >> 8) & 0xff))
	c.emitByte(uint8(offset & 0xff))
}

func (c *compiler) emitJump(instruction uint8) int {
	c.emitByte(instruction)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.function.fnChunk.code) - 2
}

func (c *compiler) emitReturn() {
	c.emitByte(opNil)
	c.emitByte(opReturn)
}

func (c *compiler) makeConstant(value Value) uint8 {
	constant := c.function.fnChunk.addConstant(value)
	if constant > int(uint8Max) {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return uint8(constant)
}

func (c *compiler) emitConstant(value Value) {
	c.emitBytes(opConstant, c.makeConstant(value))
}

func (c *compiler) patchJump(offset int) {
	jump := len(c.function.fnChunk.code) - offset - 2

	if jump > int(uint16Max) {
		c.error("Too much code to jump over.")
	}

	c.function.fnChunk.code[offset] = uint8((jump >> 8) & 0xff)
	c.function.fnChunk.code[offset+1] = uint8(jump & 0xff)
}

func (c *compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp uint8

	var arg int
	if arg = c.resolveLocal(name); arg != -1 {
		getOp = opGetLocal
		setOp = opSetLocal
	} else if arg = c.resolveUpvalue(name); arg != -1 {
		getOp = opGetUpvalue
		setOp = opSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp = opGetGlobal
		setOp = opSetGlobal
	}

	if canAssign && c.match(tokenEqual) {
		c.expression()
		c.emitBytes(setOp, uint8(arg))
	} else {
		c.emitBytes(getOp, uint8(arg))
	}
}

func (c *compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].isUpvalue = true
		return c.addUpvalue(local, true)
	}
	if upval := c.enclosing.resolveUpvalue(name); upval != -1 {
		return c.addUpvalue(upval, false)
	}
	return -1
}

func (c *compiler) addUpvalue(index int, isLocal bool) int {
	for i := len(c.upvalues) - 1; i >= 0; i-- {
		if c.upvalues[i].index == uint8(index) && c.upvalues[i].isLocal == isLocal {
			return i
		}
	}

	if len(c.upvalues) == uint8Count {
		c.error("Too many closure variables in function.")
	}

	c.upvalues = append(c.upvalues, compilerUpvalue{uint8(index), isLocal})
	return len(c.upvalues) - 1
}

func (c *compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *compiler) argumentList() uint8 {
	var argCount uint8 = 0
	if !c.check(tokenRightParen) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(tokenComma) {
				break
			}
			if c.check(tokenRightParen) {
				break
			}
		}
	}
	c.consume(tokenRightParen, "Expect ')' after arguments.")
	return argCount
}

func (c *compiler) synchronize() {
	c.panicMode = false

	for c.current.tokenType != tokenEof {
		if c.previous.tokenType == tokenSemicolon {
			return
		}
		switch c.current.tokenType {
		case tokenVar, tokenFun, tokenFor, tokenIf,
			tokenWhile, tokenPrint, tokenReturn:
			return
		}

		c.advance()
	}
}
