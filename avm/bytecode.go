package avm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is an action code. Codes below 0x80 have no payload; the rest are
// followed by a little-endian uint16 payload length.
type Opcode byte

// Timeline control
const (
	OpEnd       Opcode = 0x00
	OpNextFrame Opcode = 0x04
	OpPrevFrame Opcode = 0x05
	OpPlay      Opcode = 0x06
	OpStop      Opcode = 0x07
)

// Arithmetic, logic and strings (SWF 4 forms)
const (
	OpAdd            Opcode = 0x0A
	OpSubtract       Opcode = 0x0B
	OpMultiply       Opcode = 0x0C
	OpDivide         Opcode = 0x0D
	OpEquals         Opcode = 0x0E
	OpLess           Opcode = 0x0F
	OpAnd            Opcode = 0x10
	OpOr             Opcode = 0x11
	OpNot            Opcode = 0x12
	OpStringEquals   Opcode = 0x13
	OpStringLength   Opcode = 0x14
	OpStringExtract  Opcode = 0x15
	OpPop            Opcode = 0x17
	OpToInteger      Opcode = 0x18
	OpGetVariable    Opcode = 0x1C
	OpSetVariable    Opcode = 0x1D
	OpSetTarget2     Opcode = 0x20
	OpStringAdd      Opcode = 0x21
	OpGetProperty    Opcode = 0x22
	OpSetProperty    Opcode = 0x23
	OpCloneSprite    Opcode = 0x24
	OpRemoveSprite   Opcode = 0x25
	OpTrace          Opcode = 0x26
	OpStartDrag      Opcode = 0x27
	OpEndDrag        Opcode = 0x28
	OpStringLess     Opcode = 0x29
	OpThrow          Opcode = 0x2A
	OpCastOp         Opcode = 0x2B
	OpImplementsOp   Opcode = 0x2C
	OpRandomNumber   Opcode = 0x30
	OpMBStringLength Opcode = 0x31
	OpCharToAscii    Opcode = 0x32
	OpAsciiToChar    Opcode = 0x33
	OpGetTime        Opcode = 0x34
	OpMBStringExtrct Opcode = 0x35
	OpMBCharToAscii  Opcode = 0x36
	OpMBAsciiToChar  Opcode = 0x37
)

// Object model (SWF 5+)
const (
	OpDelete       Opcode = 0x3A
	OpDelete2      Opcode = 0x3B
	OpDefineLocal  Opcode = 0x3C
	OpCallFunction Opcode = 0x3D
	OpReturn       Opcode = 0x3E
	OpModulo       Opcode = 0x3F
	OpNewObject    Opcode = 0x40
	OpDefineLocal2 Opcode = 0x41
	OpInitArray    Opcode = 0x42
	OpInitObject   Opcode = 0x43
	OpTypeOf       Opcode = 0x44
	OpTargetPath   Opcode = 0x45
	OpEnumerate    Opcode = 0x46
	OpAdd2         Opcode = 0x47
	OpLess2        Opcode = 0x48
	OpEquals2      Opcode = 0x49
	OpToNumber     Opcode = 0x4A
	OpToString     Opcode = 0x4B
	OpPushDup      Opcode = 0x4C
	OpStackSwap    Opcode = 0x4D
	OpGetMember    Opcode = 0x4E
	OpSetMember    Opcode = 0x4F
	OpIncrement    Opcode = 0x50
	OpDecrement    Opcode = 0x51
	OpCallMethod   Opcode = 0x52
	OpNewMethod    Opcode = 0x53
	OpInstanceOf   Opcode = 0x54
	OpEnumerate2   Opcode = 0x55
	OpBitAnd       Opcode = 0x60
	OpBitOr        Opcode = 0x61
	OpBitXor       Opcode = 0x62
	OpBitLShift    Opcode = 0x63
	OpBitRShift    Opcode = 0x64
	OpBitURShift   Opcode = 0x65
	OpStrictEquals Opcode = 0x66
	OpGreater      Opcode = 0x67
	OpStringGreatr Opcode = 0x68
	OpExtends      Opcode = 0x69
)

// Actions with payloads
const (
	OpGotoFrame       Opcode = 0x81
	OpGetURL          Opcode = 0x83
	OpStoreRegister   Opcode = 0x87
	OpConstantPool    Opcode = 0x88
	OpWaitForFrame    Opcode = 0x8A
	OpSetTarget       Opcode = 0x8B
	OpGoToLabel       Opcode = 0x8C
	OpWaitForFrame2   Opcode = 0x8D
	OpDefineFunction2 Opcode = 0x8E
	OpTry             Opcode = 0x8F
	OpWith            Opcode = 0x94
	OpPush            Opcode = 0x96
	OpJump            Opcode = 0x99
	OpGetURL2         Opcode = 0x9A
	OpDefineFunction  Opcode = 0x9B
	OpIf              Opcode = 0x9D
	OpCall            Opcode = 0x9E
	OpGotoFrame2      Opcode = 0x9F
)

// Push value types.
const (
	pushString    byte = 0
	pushFloat     byte = 1
	pushNull      byte = 2
	pushUndefined byte = 3
	pushRegister  byte = 4
	pushBoolean   byte = 5
	pushDouble    byte = 6
	pushInteger   byte = 7
	pushConstant8 byte = 8
	pushConstant6 byte = 9
)

// OpcodeInfo describes an opcode for listings and validation.
type OpcodeInfo struct {
	Name string
	// Pops is the fixed number of operands popped, or -1 when it depends on
	// stack contents (argument counts).
	Pops int
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpEnd:       {"End", 0},
	OpNextFrame: {"NextFrame", 0},
	OpPrevFrame: {"PrevFrame", 0},
	OpPlay:      {"Play", 0},
	OpStop:      {"Stop", 0},

	OpAdd:            {"Add", 2},
	OpSubtract:       {"Subtract", 2},
	OpMultiply:       {"Multiply", 2},
	OpDivide:         {"Divide", 2},
	OpEquals:         {"Equals", 2},
	OpLess:           {"Less", 2},
	OpAnd:            {"And", 2},
	OpOr:             {"Or", 2},
	OpNot:            {"Not", 1},
	OpStringEquals:   {"StringEquals", 2},
	OpStringLength:   {"StringLength", 1},
	OpStringExtract:  {"StringExtract", 3},
	OpPop:            {"Pop", 1},
	OpToInteger:      {"ToInteger", 1},
	OpGetVariable:    {"GetVariable", 1},
	OpSetVariable:    {"SetVariable", 2},
	OpSetTarget2:     {"SetTarget2", 1},
	OpStringAdd:      {"StringAdd", 2},
	OpGetProperty:    {"GetProperty", 2},
	OpSetProperty:    {"SetProperty", 3},
	OpCloneSprite:    {"CloneSprite", 3},
	OpRemoveSprite:   {"RemoveSprite", 1},
	OpTrace:          {"Trace", 1},
	OpStartDrag:      {"StartDrag", -1},
	OpEndDrag:        {"EndDrag", 0},
	OpStringLess:     {"StringLess", 2},
	OpThrow:          {"Throw", 1},
	OpCastOp:         {"CastOp", 2},
	OpImplementsOp:   {"ImplementsOp", -1},
	OpRandomNumber:   {"RandomNumber", 1},
	OpMBStringLength: {"MBStringLength", 1},
	OpCharToAscii:    {"CharToAscii", 1},
	OpAsciiToChar:    {"AsciiToChar", 1},
	OpGetTime:        {"GetTime", 0},
	OpMBStringExtrct: {"MBStringExtract", 3},
	OpMBCharToAscii:  {"MBCharToAscii", 1},
	OpMBAsciiToChar:  {"MBAsciiToChar", 1},

	OpDelete:       {"Delete", 2},
	OpDelete2:      {"Delete2", 1},
	OpDefineLocal:  {"DefineLocal", 2},
	OpCallFunction: {"CallFunction", -1},
	OpReturn:       {"Return", 1},
	OpModulo:       {"Modulo", 2},
	OpNewObject:    {"NewObject", -1},
	OpDefineLocal2: {"DefineLocal2", 1},
	OpInitArray:    {"InitArray", -1},
	OpInitObject:   {"InitObject", -1},
	OpTypeOf:       {"TypeOf", 1},
	OpTargetPath:   {"TargetPath", 1},
	OpEnumerate:    {"Enumerate", 1},
	OpAdd2:         {"Add2", 2},
	OpLess2:        {"Less2", 2},
	OpEquals2:      {"Equals2", 2},
	OpToNumber:     {"ToNumber", 1},
	OpToString:     {"ToString", 1},
	OpPushDup:      {"PushDuplicate", 1},
	OpStackSwap:    {"StackSwap", 2},
	OpGetMember:    {"GetMember", 2},
	OpSetMember:    {"SetMember", 3},
	OpIncrement:    {"Increment", 1},
	OpDecrement:    {"Decrement", 1},
	OpCallMethod:   {"CallMethod", -1},
	OpNewMethod:    {"NewMethod", -1},
	OpInstanceOf:   {"InstanceOf", 2},
	OpEnumerate2:   {"Enumerate2", 1},
	OpBitAnd:       {"BitAnd", 2},
	OpBitOr:        {"BitOr", 2},
	OpBitXor:       {"BitXor", 2},
	OpBitLShift:    {"BitLShift", 2},
	OpBitRShift:    {"BitRShift", 2},
	OpBitURShift:   {"BitURShift", 2},
	OpStrictEquals: {"StrictEquals", 2},
	OpGreater:      {"Greater", 2},
	OpStringGreatr: {"StringGreater", 2},
	OpExtends:      {"Extends", 2},

	OpGotoFrame:       {"GotoFrame", 0},
	OpGetURL:          {"GetURL", 0},
	OpStoreRegister:   {"StoreRegister", 0},
	OpConstantPool:    {"ConstantPool", 0},
	OpWaitForFrame:    {"WaitForFrame", 0},
	OpSetTarget:       {"SetTarget", 0},
	OpGoToLabel:       {"GoToLabel", 0},
	OpWaitForFrame2:   {"WaitForFrame2", 1},
	OpDefineFunction2: {"DefineFunction2", 0},
	OpTry:             {"Try", 0},
	OpWith:            {"With", 1},
	OpPush:            {"Push", 0},
	OpJump:            {"Jump", 0},
	OpGetURL2:         {"GetURL2", 2},
	OpDefineFunction:  {"DefineFunction", 0},
	OpIf:              {"If", 1},
	OpCall:            {"Call", 1},
	OpGotoFrame2:      {"GotoFrame2", 1},
}

// opcodesByName is the reverse of opcodeTable, for the assembler.
var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("Unknown(0x%02X)", byte(op))}
}

// Name returns the mnemonic of an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// Known reports whether op is implemented.
func (op Opcode) Known() bool {
	_, ok := opcodeTable[op]
	return ok
}

// HasPayload reports whether op carries a length-prefixed payload.
func (op Opcode) HasPayload() bool {
	return op >= 0x80
}

func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// action is one decoded action record.
type action struct {
	op      Opcode
	payload []byte
	next    int // offset of the following action
}

// decodeAt decodes the action at offset ip.
func decodeAt(code []byte, ip int) (action, error) {
	if ip >= len(code) {
		return action{op: OpEnd, next: ip}, nil
	}
	op := Opcode(code[ip])
	if !op.HasPayload() {
		return action{op: op, next: ip + 1}, nil
	}
	if ip+3 > len(code) {
		return action{}, &InternalError{Op: op, Offset: ip, Msg: "truncated action header"}
	}
	n := int(binary.LittleEndian.Uint16(code[ip+1:]))
	end := ip + 3 + n
	if end > len(code) {
		return action{}, &InternalError{Op: op, Offset: ip, Msg: "payload runs past end of code"}
	}
	return action{op: op, payload: code[ip+3 : end], next: end}, nil
}

// payloadReader reads the fields of an action payload. Reads past the end
// record an error instead of panicking.
type payloadReader struct {
	b   []byte
	pos int
	err bool
}

func (r *payloadReader) more() bool { return r.pos < len(r.b) }

func (r *payloadReader) u8() byte {
	if r.pos+1 > len(r.b) {
		r.err = true
		return 0
	}
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *payloadReader) u16() uint16 {
	if r.pos+2 > len(r.b) {
		r.err = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v
}

func (r *payloadReader) i16() int16 { return int16(r.u16()) }

func (r *payloadReader) u32() uint32 {
	if r.pos+4 > len(r.b) {
		r.err = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *payloadReader) f32() float64 {
	return float64(math.Float32frombits(r.u32()))
}

// f64 reads an AVM1 double: two little-endian words, high word first.
func (r *payloadReader) f64() float64 {
	hi := uint64(r.u32())
	lo := uint64(r.u32())
	return math.Float64frombits(hi<<32 | lo)
}

func (r *payloadReader) str() string {
	for i := r.pos; i < len(r.b); i++ {
		if r.b[i] == 0 {
			s := string(r.b[r.pos:i])
			r.pos = i + 1
			return s
		}
	}
	r.err = true
	r.pos = len(r.b)
	return ""
}

// ---------------------------------------------------------------------------
// Builder: emits action records with label fixups
// ---------------------------------------------------------------------------

// Builder constructs bytecode.
type Builder struct {
	code   []byte
	labels []*Label
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Bytes returns the code, terminated with End, after resolving labels.
// Unresolved labels are reported as an error.
func (b *Builder) Bytes() ([]byte, error) {
	for _, l := range b.labels {
		if l.pos < 0 && len(l.refs) > 0 {
			return nil, fmt.Errorf("avm: label %q used but never marked", l.name)
		}
	}
	out := make([]byte, len(b.code)+1)
	copy(out, b.code)
	return out, nil
}

// Len returns the current code length.
func (b *Builder) Len() int {
	return len(b.code)
}

// Emit appends a payload-less action.
func (b *Builder) Emit(op Opcode) {
	b.code = append(b.code, byte(op))
}

// EmitPayload appends an action with a payload.
func (b *Builder) EmitPayload(op Opcode, payload []byte) {
	b.code = append(b.code, byte(op))
	b.code = binary.LittleEndian.AppendUint16(b.code, uint16(len(payload)))
	b.code = append(b.code, payload...)
}

// EmitRaw appends raw bytes (function bodies, try blocks).
func (b *Builder) EmitRaw(p []byte) {
	b.code = append(b.code, p...)
}

// Label is a jump target.
type Label struct {
	name string
	pos  int
	refs []int // offsets of int16 fields to patch
}

// NewLabel creates an unmarked label.
func (b *Builder) NewLabel(name string) *Label {
	l := &Label{name: name, pos: -1}
	b.labels = append(b.labels, l)
	return l
}

// Mark binds l to the current position and patches earlier references.
func (b *Builder) Mark(l *Label) {
	l.pos = len(b.code)
	for _, ref := range l.refs {
		b.patch(ref, l.pos)
	}
}

// EmitJump appends Jump or If to label l.
func (b *Builder) EmitJump(op Opcode, l *Label) {
	b.code = append(b.code, byte(op), 2, 0, 0, 0)
	ref := len(b.code) - 2
	if l.pos >= 0 {
		b.patch(ref, l.pos)
		return
	}
	l.refs = append(l.refs, ref)
}

// patch writes the offset from the end of the jump at ref to target.
func (b *Builder) patch(ref, target int) {
	off := target - (ref + 2)
	binary.LittleEndian.PutUint16(b.code[ref:], uint16(int16(off)))
}

// ---------------------------------------------------------------------------
// Payload encoding helpers
// ---------------------------------------------------------------------------

// PushItem is one operand of a Push action.
type PushItem struct {
	kind byte
	s    string
	n    float64
	b    bool
	idx  int
}

func PushString(s string) PushItem     { return PushItem{kind: pushString, s: s} }
func PushNumber(f float64) PushItem    { return PushItem{kind: pushDouble, n: f} }
func PushInt(i int32) PushItem         { return PushItem{kind: pushInteger, n: float64(i)} }
func PushBool(v bool) PushItem         { return PushItem{kind: pushBoolean, b: v} }
func PushNull() PushItem               { return PushItem{kind: pushNull} }
func PushUndefined() PushItem          { return PushItem{kind: pushUndefined} }
func PushRegister(r uint8) PushItem    { return PushItem{kind: pushRegister, idx: int(r)} }
func PushConstant(index int) PushItem  { return PushItem{kind: pushConstant6, idx: index} }
func PushFloat32(f float32) PushItem   { return PushItem{kind: pushFloat, n: float64(f)} }
func pushConstantShort(i int) PushItem { return PushItem{kind: pushConstant8, idx: i} }

// EncodePush builds the payload of a Push action.
func EncodePush(items ...PushItem) []byte {
	var p []byte
	for _, it := range items {
		p = append(p, it.kind)
		switch it.kind {
		case pushString:
			p = append(p, it.s...)
			p = append(p, 0)
		case pushFloat:
			p = binary.LittleEndian.AppendUint32(p, math.Float32bits(float32(it.n)))
		case pushRegister, pushConstant8:
			p = append(p, byte(it.idx))
		case pushBoolean:
			if it.b {
				p = append(p, 1)
			} else {
				p = append(p, 0)
			}
		case pushDouble:
			bits := math.Float64bits(it.n)
			p = binary.LittleEndian.AppendUint32(p, uint32(bits>>32))
			p = binary.LittleEndian.AppendUint32(p, uint32(bits))
		case pushInteger:
			p = binary.LittleEndian.AppendUint32(p, uint32(int32(it.n)))
		case pushConstant6:
			p = binary.LittleEndian.AppendUint16(p, uint16(it.idx))
		}
	}
	return p
}

// EncodeStrings builds a payload of NUL-terminated strings, optionally
// prefixed with their count (ConstantPool).
func EncodeStrings(withCount bool, ss ...string) []byte {
	var p []byte
	if withCount {
		p = binary.LittleEndian.AppendUint16(p, uint16(len(ss)))
	}
	for _, s := range ss {
		p = append(p, s...)
		p = append(p, 0)
	}
	return p
}
