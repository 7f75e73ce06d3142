package avm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// AsmError reports an assembly failure with its source line.
type AsmError struct {
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

// Assemble translates action assembly into bytecode. The format is one
// action per line, mnemonics as printed by Disassemble (case-insensitive),
// ';' comments and 'name:' labels:
//
//	constants "a" "b"
//	push "x" 1 2.5 true null undefined r:1 c:0
//	loop:
//	if loop
//	gotoframe 3          ; 1-based
//	function add(a, b) {
//	  ...
//	}
//	function2 f(r1:a, b) regs=3 flags=preloadthis|preloadglobal {
//	try e { ... } catch { ... } finally { ... }
//	with { ... }
//
// Blocks open with a trailing '{' and close with a line starting '}'.
func Assemble(src string) ([]byte, error) {
	a := &assembler{b: NewBuilder(), labels: map[string]*Label{}}
	a.lines = strings.Split(src, "\n")
	if err := a.block(false); err != nil {
		return nil, err
	}
	if a.pos < len(a.lines) {
		return nil, &AsmError{Line: a.pos + 1, Msg: "unexpected '}'"}
	}
	return a.b.Bytes()
}

// MustAssemble is Assemble for fixed test and fixture sources.
func MustAssemble(src string) []byte {
	code, err := Assemble(src)
	if err != nil {
		panic(err)
	}
	return code
}

type assembler struct {
	b      *Builder
	lines  []string
	pos    int
	labels map[string]*Label
}

func (a *assembler) errorf(format string, args ...any) error {
	return &AsmError{Line: a.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

func (a *assembler) label(name string) *Label {
	l, ok := a.labels[name]
	if !ok {
		l = a.b.NewLabel(name)
		a.labels[name] = l
	}
	return l
}

// block assembles lines until the end of input or, when nested, a line
// starting with '}' which is left unconsumed.
func (a *assembler) block(nested bool) error {
	for ; a.pos < len(a.lines); a.pos++ {
		line := stripComment(a.lines[a.pos])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "}") {
			if !nested {
				return a.errorf("unexpected '}'")
			}
			return nil
		}
		if strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t\"") {
			l := a.label(strings.TrimSuffix(line, ":"))
			if l.pos >= 0 {
				return a.errorf("label %q defined twice", l.name)
			}
			a.b.Mark(l)
			continue
		}
		toks, err := tokenize(line)
		if err != nil {
			return a.errorf("%v", err)
		}
		if err := a.action(toks); err != nil {
			return err
		}
	}
	if nested {
		return a.errorf("missing '}'")
	}
	return nil
}

// body assembles a nested block opened on the current line and returns its
// length. On return a.pos is at the closing line.
func (a *assembler) body() (int, error) {
	start := a.b.Len()
	a.pos++
	if err := a.block(true); err != nil {
		return 0, err
	}
	return a.b.Len() - start, nil
}

func (a *assembler) action(toks []string) error {
	name := strings.ToLower(toks[0])
	args := toks[1:]
	switch name {
	case "constants", "constantpool":
		ss, err := unquoteAll(args)
		if err != nil {
			return a.errorf("%v", err)
		}
		a.b.EmitPayload(OpConstantPool, EncodeStrings(true, ss...))
		return nil
	case "push":
		if len(args) == 0 {
			return a.errorf("push needs operands")
		}
		items, err := parsePushItems(args)
		if err != nil {
			return a.errorf("%v", err)
		}
		a.b.EmitPayload(OpPush, EncodePush(items...))
		return nil
	case "jump", "if":
		if len(args) != 1 {
			return a.errorf("%s takes a label", name)
		}
		op := OpJump
		if name == "if" {
			op = OpIf
		}
		a.b.EmitJump(op, a.label(args[0]))
		return nil
	case "gotoframe":
		n, err := intArg(args, 0)
		if err != nil || n < 1 {
			return a.errorf("gotoframe takes a 1-based frame number")
		}
		a.b.EmitPayload(OpGotoFrame, binary.LittleEndian.AppendUint16(nil, uint16(n-1)))
		return nil
	case "gotolabel", "settarget":
		ss, err := unquoteAll(args)
		if err != nil || len(ss) != 1 {
			return a.errorf("%s takes one string", name)
		}
		op := OpGoToLabel
		if name == "settarget" {
			op = OpSetTarget
		}
		a.b.EmitPayload(op, EncodeStrings(false, ss[0]))
		return nil
	case "geturl":
		ss, err := unquoteAll(args)
		if err != nil || len(ss) != 2 {
			return a.errorf("geturl takes url and window strings")
		}
		a.b.EmitPayload(OpGetURL, EncodeStrings(false, ss...))
		return nil
	case "geturl2", "storeregister":
		n, err := intArg(args, 0)
		if err != nil || n < 0 || n > 255 {
			return a.errorf("%s takes a byte operand", name)
		}
		op := OpGetURL2
		if name == "storeregister" {
			op = OpStoreRegister
		}
		a.b.EmitPayload(op, []byte{byte(n)})
		return nil
	case "gotoframe2":
		return a.gotoFrame2(args)
	case "waitforframe":
		frame, err1 := intArg(args, 0)
		skip, err2 := intArg(args, 1)
		if err1 != nil || err2 != nil {
			return a.errorf("waitforframe takes frame and skip count")
		}
		p := binary.LittleEndian.AppendUint16(nil, uint16(frame))
		a.b.EmitPayload(OpWaitForFrame, append(p, byte(skip)))
		return nil
	case "waitforframe2":
		skip, err := intArg(args, 0)
		if err != nil {
			return a.errorf("waitforframe2 takes a skip count")
		}
		a.b.EmitPayload(OpWaitForFrame2, []byte{byte(skip)})
		return nil
	case "function", "definefunction", "function2", "definefunction2":
		return a.function(args, strings.HasSuffix(name, "2"))
	case "try":
		return a.try(args)
	case "with":
		return a.with(args)
	}
	op, ok := opcodeByLowerName[name]
	if !ok {
		return a.errorf("unknown action %q", toks[0])
	}
	if op.HasPayload() {
		return a.errorf("%s needs operands", op.Name())
	}
	if len(args) > 0 {
		return a.errorf("%s takes no operands", op.Name())
	}
	a.b.Emit(op)
	return nil
}

var opcodeByLowerName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodesByName))
	for name, op := range opcodesByName {
		m[strings.ToLower(name)] = op
	}
	return m
}()

func (a *assembler) gotoFrame2(args []string) error {
	var flags byte
	var bias []byte
	for _, arg := range args {
		switch {
		case arg == "play":
			flags |= 1
		case arg == "stop":
		case strings.HasPrefix(arg, "bias="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "bias="))
			if err != nil {
				return a.errorf("bad bias %q", arg)
			}
			flags |= 2
			bias = binary.LittleEndian.AppendUint16(nil, uint16(n))
		default:
			return a.errorf("gotoframe2: unknown operand %q", arg)
		}
	}
	a.b.EmitPayload(OpGotoFrame2, append([]byte{flags}, bias...))
	return nil
}

var functionFlagNames = map[string]uint16{
	"preloadthis":      FlagPreloadThis,
	"suppressthis":     FlagSuppressThis,
	"preloadarguments": FlagPreloadArguments,
	"suppressargs":     FlagSuppressArgs,
	"preloadsuper":     FlagPreloadSuper,
	"suppresssuper":    FlagSuppressSuper,
	"preloadroot":      FlagPreloadRoot,
	"preloadparent":    FlagPreloadParent,
	"preloadglobal":    FlagPreloadGlobal,
}

func (a *assembler) function(args []string, v2 bool) error {
	if len(args) == 0 || args[len(args)-1] != "{" {
		return a.errorf("function header must end with '{'")
	}
	args = args[:len(args)-1]
	name := ""
	if len(args) > 0 && args[0] != "(" {
		name = args[0]
		args = args[1:]
	}
	if len(args) == 0 || args[0] != "(" {
		return a.errorf("function needs a parameter list")
	}
	var params []string
	i := 1
	for ; i < len(args) && args[i] != ")"; i++ {
		params = append(params, args[i])
	}
	if i == len(args) {
		return a.errorf("unterminated parameter list")
	}
	regs, flags := 0, uint16(0)
	for _, opt := range args[i+1:] {
		switch {
		case v2 && strings.HasPrefix(opt, "regs="):
			n, err := strconv.Atoi(strings.TrimPrefix(opt, "regs="))
			if err != nil || n < 0 || n > 255 {
				return a.errorf("bad register count %q", opt)
			}
			regs = n
		case v2 && strings.HasPrefix(opt, "flags="):
			for _, f := range strings.Split(strings.TrimPrefix(opt, "flags="), "|") {
				bit, ok := functionFlagNames[strings.ToLower(f)]
				if !ok {
					n, err := strconv.ParseUint(f, 0, 16)
					if err != nil {
						return a.errorf("unknown function flag %q", f)
					}
					bit = uint16(n)
				}
				flags |= bit
			}
		default:
			return a.errorf("unknown function option %q", opt)
		}
	}

	p := EncodeStrings(false, name)
	p = binary.LittleEndian.AppendUint16(p, uint16(len(params)))
	if v2 {
		p = append(p, byte(regs))
		p = binary.LittleEndian.AppendUint16(p, flags)
		for _, param := range params {
			reg := 0
			if r, n, ok := strings.Cut(param, ":"); ok && strings.HasPrefix(r, "r") {
				v, err := strconv.Atoi(r[1:])
				if err != nil || v < 0 || v > 255 {
					return a.errorf("bad parameter register %q", param)
				}
				reg, param = v, n
			}
			p = append(p, byte(reg))
			p = append(p, param...)
			p = append(p, 0)
		}
	} else {
		p = append(p, EncodeStrings(false, params...)...)
	}
	op := OpDefineFunction
	if v2 {
		op = OpDefineFunction2
	}
	a.b.EmitPayload(op, append(p, 0, 0))
	sizeAt := a.b.Len() - 2
	n, err := a.body()
	if err != nil {
		return err
	}
	if strings.TrimSpace(stripComment(a.lines[a.pos])) != "}" {
		return a.errorf("function body must close with a bare '}'")
	}
	binary.LittleEndian.PutUint16(a.b.code[sizeAt:], uint16(n))
	return nil
}

func (a *assembler) with(args []string) error {
	if len(args) != 1 || args[0] != "{" {
		return a.errorf("with takes a block")
	}
	a.b.EmitPayload(OpWith, []byte{0, 0})
	sizeAt := a.b.Len() - 2
	n, err := a.body()
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(a.b.code[sizeAt:], uint16(n))
	return nil
}

func (a *assembler) try(args []string) error {
	if len(args) == 0 || args[len(args)-1] != "{" {
		return a.errorf("try takes a block")
	}
	var flags byte
	var target []byte
	switch head := args[:len(args)-1]; {
	case len(head) == 0:
		target = []byte{0}
	case len(head) == 1 && strings.HasPrefix(head[0], "r:"):
		n, err := strconv.Atoi(head[0][2:])
		if err != nil || n < 0 || n > 255 {
			return a.errorf("bad catch register %q", head[0])
		}
		flags |= 4
		target = []byte{byte(n)}
	case len(head) == 1:
		target = EncodeStrings(false, head[0])
	default:
		return a.errorf("try takes at most one catch target")
	}

	a.b.EmitPayload(OpTry, append([]byte{0, 0, 0, 0, 0, 0, 0}, target...))
	hdr := a.b.Len() - len(target) - 7
	var sizes [3]int
	section := 0
	for {
		n, err := a.body()
		if err != nil {
			return err
		}
		sizes[section] += n
		rest := strings.TrimSpace(strings.TrimPrefix(stripComment(a.lines[a.pos]), "}"))
		switch rest {
		case "":
			a.b.code[hdr] = flags
			binary.LittleEndian.PutUint16(a.b.code[hdr+1:], uint16(sizes[0]))
			binary.LittleEndian.PutUint16(a.b.code[hdr+3:], uint16(sizes[1]))
			binary.LittleEndian.PutUint16(a.b.code[hdr+5:], uint16(sizes[2]))
			return nil
		case "catch {":
			if section != 0 {
				return a.errorf("catch must follow try")
			}
			section, flags = 1, flags|1
		case "finally {":
			if section == 2 {
				return a.errorf("duplicate finally")
			}
			section, flags = 2, flags|2
		default:
			return a.errorf("expected catch, finally or '}'")
		}
	}
}

func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

// tokenize splits a line on whitespace and commas. Quoted strings stay
// whole (quotes included); parentheses and braces are separate tokens.
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ',' || unicode.IsSpace(rune(c)):
			i++
		case c == '(' || c == ')' || c == '{' || c == '}':
			toks = append(toks, string(c))
			i++
		case c == '"':
			j := i + 1
			for ; j < len(line); j++ {
				if line[j] == '\\' {
					j++
					continue
				}
				if line[j] == '"' {
					break
				}
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, line[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t,(){}\"", rune(line[j])) {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks, nil
}

func unquoteAll(toks []string) ([]string, error) {
	out := make([]string, len(toks))
	for i, t := range toks {
		s, err := strconv.Unquote(t)
		if err != nil {
			return nil, fmt.Errorf("bad string %s", t)
		}
		out[i] = s
	}
	return out, nil
}

func intArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing operand")
	}
	return strconv.Atoi(args[i])
}

func parsePushItems(toks []string) ([]PushItem, error) {
	items := make([]PushItem, 0, len(toks))
	for _, t := range toks {
		switch {
		case strings.HasPrefix(t, `"`):
			s, err := strconv.Unquote(t)
			if err != nil {
				return nil, fmt.Errorf("bad string %s", t)
			}
			items = append(items, PushString(s))
		case t == "true" || t == "false":
			items = append(items, PushBool(t == "true"))
		case t == "null":
			items = append(items, PushNull())
		case t == "undefined":
			items = append(items, PushUndefined())
		case t == "NaN":
			items = append(items, PushNumber(math.NaN()))
		case strings.HasPrefix(t, "r:"), strings.HasPrefix(t, "c:"):
			n, err := strconv.Atoi(t[2:])
			if err != nil || n < 0 || n > 0xFFFF || (t[0] == 'r' && n > 255) {
				return nil, fmt.Errorf("bad operand %s", t)
			}
			if t[0] == 'r' {
				items = append(items, PushRegister(uint8(n)))
			} else {
				items = append(items, PushConstant(n))
			}
		case strings.HasPrefix(t, "f:"):
			f, err := strconv.ParseFloat(t[2:], 32)
			if err != nil {
				return nil, fmt.Errorf("bad float %s", t)
			}
			items = append(items, PushFloat32(float32(f)))
		default:
			if n, err := strconv.ParseInt(t, 10, 32); err == nil {
				items = append(items, PushInt(int32(n)))
				continue
			}
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("bad push operand %s", t)
			}
			items = append(items, PushNumber(f))
		}
	}
	return items, nil
}
