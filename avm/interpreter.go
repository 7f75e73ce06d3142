package avm

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// frame: execution state of one script or function invocation
// ---------------------------------------------------------------------------

type handlerState uint8

const (
	inTry handlerState = iota
	inCatch
	inFinally
)

// tryHandler is an active Try block of a frame.
type tryHandler struct {
	tryStart, catchStart, finallyStart, end int

	hasCatch, hasFinally bool
	catchInReg           bool
	catchReg             uint8
	catchName            string

	stackDepth int
	withDepth  int

	state   handlerState
	pending completion
}

type completionKind uint8

const (
	completeNormal completionKind = iota
	completeThrow
	completeReturn
	completeJump
)

// completion is what a finally block resumes once it reaches its end: a
// rethrow, a return from the frame or a jump out of the try statement.
type completion struct {
	kind   completionKind
	value  Value
	target int
}

type withBlock struct {
	obj        *Object
	start, end int
}

type frame struct {
	code []byte
	ip   int
	cur  int // offset of the executing action
	op   Opcode
	pool []string
	regs []Value

	stack []Value
	scope []*Object // outermost first
	withs []withBlock

	this   Value
	target *Object // current target, changed by SetTarget
	home   *Object // target the frame started with

	fn         *Function
	activation *Object
	super      *Object

	handlers []tryHandler
}

// superRef is the payload of the object bound to "super" inside methods.
type superRef struct {
	this  Value
	proto *Object
	ctor  *Object
}

func (vm *VM) fail(f *frame, msg string) {
	signal(&InternalError{Op: f.op, Offset: f.cur, Msg: msg})
}

func (vm *VM) push(f *frame, v Value) {
	f.stack = append(f.stack, v)
}

func (vm *VM) pop(f *frame) Value {
	n := len(f.stack)
	if n == 0 {
		vm.fail(f, "stack underflow")
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

func (vm *VM) peek(f *frame) Value {
	if len(f.stack) == 0 {
		vm.fail(f, "stack underflow")
	}
	return f.stack[len(f.stack)-1]
}

// popCount pops an argument count and bounds it by the stack size.
func (vm *VM) popCount(f *frame) int {
	n := vm.ToNumber(vm.pop(f))
	if math.IsNaN(n) || n < 0 {
		return 0
	}
	if int(n) > len(f.stack) {
		vm.fail(f, "stack underflow")
	}
	return int(n)
}

// popArgs pops n values; the first popped is argument 0.
func (vm *VM) popArgs(f *frame, n int) []Value {
	args := make([]Value, n)
	for i := 0; i < n; i++ {
		args[i] = vm.pop(f)
	}
	return args
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

// execute runs f to completion, routing throws to f's try handlers. Throws
// not handled here unwind to the caller's execute.
func (vm *VM) execute(f *frame) Value {
	for {
		if ret, done := vm.runProtected(f); done {
			return ret
		}
	}
}

func (vm *VM) runProtected(f *frame) (ret Value, done bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(*Thrown)
			if !ok || !vm.catch(f, t.Value) {
				panic(r)
			}
		}
	}()
	return vm.run(f), true
}

// catch transfers control to the innermost handler able to take a throw.
func (vm *VM) catch(f *frame, v Value) bool {
	for len(f.handlers) > 0 {
		h := &f.handlers[len(f.handlers)-1]
		if h.state == inTry && h.hasCatch {
			h.state = inCatch
			f.stack = f.stack[:h.stackDepth]
			f.withs = f.withs[:h.withDepth]
			if h.catchInReg {
				if int(h.catchReg) < len(f.regs) {
					f.regs[h.catchReg] = v
				}
			} else {
				vm.defineLocal(f, h.catchName, v)
			}
			f.ip = h.catchStart
			return true
		}
		if h.state != inFinally && h.hasFinally {
			h.state = inFinally
			h.pending = completion{kind: completeThrow, value: v}
			f.stack = f.stack[:h.stackDepth]
			f.withs = f.withs[:h.withDepth]
			f.ip = h.finallyStart
			return true
		}
		f.handlers = f.handlers[:len(f.handlers)-1]
	}
	return false
}

// divertReturn routes a return through the innermost pending finally
// block. It reports false when no finally block remains and the frame can
// return directly.
func (vm *VM) divertReturn(f *frame, v Value) bool {
	for len(f.handlers) > 0 {
		h := &f.handlers[len(f.handlers)-1]
		if h.hasFinally && h.state != inFinally {
			h.state = inFinally
			h.pending = completion{kind: completeReturn, value: v}
			f.stack = f.stack[:h.stackDepth]
			f.withs = f.withs[:h.withDepth]
			f.ip = h.finallyStart
			return true
		}
		f.handlers = f.handlers[:len(f.handlers)-1]
	}
	return false
}

// settleBlocks applies try and with block boundaries at the current ip. It
// returns done when a finally block completed a pending return.
func (vm *VM) settleBlocks(f *frame) (ret Value, done bool) {
	for n := len(f.withs); n > 0; n = len(f.withs) {
		w := f.withs[n-1]
		if f.ip >= w.start && f.ip < w.end {
			break
		}
		f.withs = f.withs[:n-1]
	}
	for len(f.handlers) > 0 {
		h := &f.handlers[len(f.handlers)-1]
		lo, hi := h.finallyStart, h.end
		switch h.state {
		case inTry:
			lo, hi = h.tryStart, h.catchStart
		case inCatch:
			lo, hi = h.catchStart, h.finallyStart
		}
		if f.ip >= lo && f.ip < hi {
			return Undefined, false
		}
		switch {
		case h.state == inFinally && f.ip == h.end:
			f.handlers = f.handlers[:len(f.handlers)-1]
			switch c := h.pending; c.kind {
			case completeThrow:
				signal(&Thrown{Value: c.value})
			case completeReturn:
				if !vm.divertReturn(f, c.value) {
					return c.value, true
				}
			case completeJump:
				f.ip = c.target
			}
		case h.state == inFinally:
			// Jumped out of the finally block: the pending completion is
			// abandoned.
			f.handlers = f.handlers[:len(f.handlers)-1]
		case f.ip == hi:
			// Fell off the end of the try or catch block.
			if h.hasFinally {
				h.state = inFinally
				h.pending = completion{}
				f.ip = h.finallyStart
				continue
			}
			f.handlers = f.handlers[:len(f.handlers)-1]
			f.ip = h.end
		default:
			// Jumped out of the try or catch block.
			if h.hasFinally {
				h.state = inFinally
				h.pending = completion{kind: completeJump, target: f.ip}
				f.ip = h.finallyStart
				continue
			}
			f.handlers = f.handlers[:len(f.handlers)-1]
		}
	}
	return Undefined, false
}

func (vm *VM) countStep() {
	vm.steps++
	if vm.Limits.MaxInstructions > 0 && vm.steps > vm.Limits.MaxInstructions {
		signal(&ScriptFault{Kind: FaultInstructionLimit})
	}
}

// run executes actions until Return or End.
func (vm *VM) run(f *frame) Value {
	for {
		if ret, done := vm.settleBlocks(f); done {
			return ret
		}
		if f.ip >= len(f.code) {
			return Undefined
		}
		act, err := decodeAt(f.code, f.ip)
		if err != nil {
			signal(err)
		}
		f.cur, f.op = f.ip, act.op
		f.ip = act.next
		vm.countStep()

		switch act.op {
		case OpEnd:
			return Undefined

		// --- timeline -----------------------------------------------------
		case OpNextFrame:
			if tl := vm.Timeline; tl != nil {
				tl.NextFrame(f.target)
			}
		case OpPrevFrame:
			if tl := vm.Timeline; tl != nil {
				tl.PrevFrame(f.target)
			}
		case OpPlay:
			if tl := vm.Timeline; tl != nil {
				tl.Play(f.target)
			}
		case OpStop:
			if tl := vm.Timeline; tl != nil {
				tl.Stop(f.target)
			}
		case OpGotoFrame:
			r := &payloadReader{b: act.payload}
			n := int(r.u16())
			vm.checkPayload(f, r)
			if tl := vm.Timeline; tl != nil {
				tl.GotoFrame(f.target, n+1)
			}
		case OpGoToLabel:
			r := &payloadReader{b: act.payload}
			label := r.str()
			vm.checkPayload(f, r)
			if tl := vm.Timeline; tl != nil {
				tl.GotoLabel(f.target, label)
			}
		case OpGotoFrame2:
			r := &payloadReader{b: act.payload}
			flags := r.u8()
			bias := 0
			if flags&2 != 0 {
				bias = int(r.u16())
			}
			vm.checkPayload(f, r)
			vm.gotoFrame2(f, vm.pop(f), flags&1 != 0, bias)
		case OpWaitForFrame:
			// Every frame is resident once loaded; never skip.
		case OpWaitForFrame2:
			vm.pop(f)
		case OpCall:
			v := vm.pop(f)
			if tl := vm.Timeline; tl != nil {
				tl.CallFrame(f.target, v)
			}
		case OpSetTarget:
			r := &payloadReader{b: act.payload}
			vm.setTarget(f, String(r.str()))
		case OpSetTarget2:
			vm.setTarget(f, vm.pop(f))
		case OpGetProperty:
			idx := int(vm.ToNumber(vm.pop(f)))
			target := vm.propertyTarget(f, vm.pop(f))
			if idx < 0 || idx >= len(propertyNames) || target == nil {
				vm.push(f, Undefined)
				break
			}
			vm.push(f, vm.GetMember(target, propertyNames[idx]))
		case OpSetProperty:
			v := vm.pop(f)
			idx := int(vm.ToNumber(vm.pop(f)))
			target := vm.propertyTarget(f, vm.pop(f))
			if idx >= 0 && idx < len(propertyNames) && target != nil {
				vm.SetMember(target, propertyNames[idx], v)
			}
		case OpCloneSprite:
			depth := int(vm.ToNumber(vm.pop(f)))
			name := vm.ToString(vm.pop(f))
			src := vm.propertyTarget(f, vm.pop(f))
			if tl := vm.Timeline; tl != nil && src != nil {
				tl.CloneSprite(src, name, depth)
			}
		case OpRemoveSprite:
			target := vm.propertyTarget(f, vm.pop(f))
			if tl := vm.Timeline; tl != nil && target != nil {
				tl.RemoveSprite(target)
			}
		case OpStartDrag:
			target := vm.propertyTarget(f, vm.pop(f))
			lock := vm.ToBoolean(vm.pop(f))
			var bounds *[4]float64
			if vm.ToBoolean(vm.pop(f)) {
				var b [4]float64
				for i := 3; i >= 0; i-- {
					b[i] = vm.ToNumber(vm.pop(f))
				}
				bounds = &b
			}
			if tl := vm.Timeline; tl != nil && target != nil {
				tl.StartDrag(target, lock, bounds)
			}
		case OpEndDrag:
			if tl := vm.Timeline; tl != nil {
				tl.StopDrag()
			}
		case OpGetURL:
			r := &payloadReader{b: act.payload}
			url, window := r.str(), r.str()
			vm.checkPayload(f, r)
			if tl := vm.Timeline; tl != nil {
				tl.GetURL(url, window, 0)
			}
		case OpGetURL2:
			r := &payloadReader{b: act.payload}
			flags := r.u8()
			window := vm.ToString(vm.pop(f))
			url := vm.ToString(vm.pop(f))
			if tl := vm.Timeline; tl != nil {
				tl.GetURL(url, window, int(flags&3))
			}
		case OpTargetPath:
			v := vm.pop(f)
			if o := v.Object(); o != nil && vm.Timeline != nil {
				if p, ok := vm.Timeline.TargetPath(o); ok {
					vm.push(f, String(p))
					break
				}
			}
			vm.push(f, Undefined)

		// --- SWF 4 arithmetic and strings ---------------------------------
		case OpAdd:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Number(a+b))
		case OpSubtract:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Number(a-b))
		case OpMultiply:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Number(a*b))
		case OpDivide:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Number(a/b))
		case OpModulo:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Number(math.Mod(a, b)))
		case OpEquals:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Bool(a == b))
		case OpLess:
			b, a := vm.ToNumber(vm.pop(f)), vm.ToNumber(vm.pop(f))
			vm.push(f, Bool(a < b))
		case OpAnd:
			b, a := vm.ToBoolean(vm.pop(f)), vm.ToBoolean(vm.pop(f))
			vm.push(f, Bool(a && b))
		case OpOr:
			b, a := vm.ToBoolean(vm.pop(f)), vm.ToBoolean(vm.pop(f))
			vm.push(f, Bool(a || b))
		case OpNot:
			vm.push(f, Bool(!vm.ToBoolean(vm.pop(f))))
		case OpStringEquals:
			b, a := vm.ToString(vm.pop(f)), vm.ToString(vm.pop(f))
			vm.push(f, Bool(a == b))
		case OpStringLess:
			b, a := vm.ToString(vm.pop(f)), vm.ToString(vm.pop(f))
			vm.push(f, Bool(compareUnits(a, b) < 0))
		case OpStringGreatr:
			b, a := vm.ToString(vm.pop(f)), vm.ToString(vm.pop(f))
			vm.push(f, Bool(compareUnits(a, b) > 0))
		case OpStringAdd:
			b, a := vm.ToString(vm.pop(f)), vm.ToString(vm.pop(f))
			vm.push(f, String(a+b))
		case OpStringLength, OpMBStringLength:
			vm.push(f, Int(StringLength(vm.ToString(vm.pop(f)))))
		case OpStringExtract, OpMBStringExtrct:
			count := int(vm.ToNumber(vm.pop(f)))
			index := int(vm.ToNumber(vm.pop(f)))
			s := units(vm.ToString(vm.pop(f)))
			vm.push(f, String(extract(s, index-1, count)))
		case OpCharToAscii, OpMBCharToAscii:
			s := vm.ToString(vm.pop(f))
			if s == "" {
				vm.push(f, Int(0))
				break
			}
			r, _ := utf8.DecodeRuneInString(s)
			vm.push(f, Int(int(r)))
		case OpAsciiToChar, OpMBAsciiToChar:
			vm.push(f, String(string(rune(vm.ToInt32(vm.pop(f))))))
		case OpToInteger:
			n := vm.ToNumber(vm.pop(f))
			if math.IsNaN(n) {
				n = 0
			}
			vm.push(f, Number(math.Trunc(n)))
		case OpRandomNumber:
			max := int(vm.ToNumber(vm.pop(f)))
			if max <= 0 {
				vm.push(f, Int(0))
				break
			}
			vm.push(f, Int(vm.rand.Intn(max)))
		case OpGetTime:
			vm.push(f, Int(int(time.Since(vm.start)/time.Millisecond)))
		case OpTrace:
			vm.trace(vm.ToString(vm.pop(f)))

		// --- stack and registers ------------------------------------------
		case OpPush:
			vm.execPush(f, act.payload)
		case OpPop:
			vm.pop(f)
		case OpPushDup:
			vm.push(f, vm.peek(f))
		case OpStackSwap:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, b)
			vm.push(f, a)
		case OpStoreRegister:
			r := &payloadReader{b: act.payload}
			reg := int(r.u8())
			vm.checkPayload(f, r)
			if reg >= len(f.regs) {
				vm.fail(f, "register out of range")
			}
			f.regs[reg] = vm.peek(f)
		case OpConstantPool:
			r := &payloadReader{b: act.payload}
			n := int(r.u16())
			pool := make([]string, n)
			for i := range pool {
				pool[i] = r.str()
			}
			vm.checkPayload(f, r)
			f.pool = pool

		// --- control flow -------------------------------------------------
		case OpJump:
			vm.jump(f, act)
		case OpIf:
			if vm.ToBoolean(vm.pop(f)) {
				vm.jump(f, act)
			}
		case OpReturn:
			if v := vm.pop(f); !vm.divertReturn(f, v) {
				return v
			}
		case OpThrow:
			signal(&Thrown{Value: vm.pop(f)})
		case OpTry:
			vm.execTry(f, act)
		case OpWith:
			r := &payloadReader{b: act.payload}
			size := int(r.u16())
			vm.checkPayload(f, r)
			obj := vm.pop(f).Object()
			if act.next+size > len(f.code) {
				vm.fail(f, "with block runs past end of code")
			}
			if obj != nil {
				f.withs = append(f.withs, withBlock{obj: obj, start: act.next, end: act.next + size})
			}

		// --- variables ----------------------------------------------------
		case OpGetVariable:
			vm.push(f, vm.getVariable(f, vm.ToString(vm.pop(f))))
		case OpSetVariable:
			v := vm.pop(f)
			vm.setVariable(f, vm.ToString(vm.pop(f)), v)
		case OpDefineLocal:
			v := vm.pop(f)
			vm.defineLocal(f, vm.ToString(vm.pop(f)), v)
		case OpDefineLocal2:
			name := vm.ToString(vm.pop(f))
			if f.activation != nil {
				if !f.activation.HasOwn(name) {
					f.activation.Put(name, Undefined)
				}
			} else if t := vm.fallbackTarget(f); !vm.HasMember(t, name) {
				vm.SetMember(t, name, Undefined)
			}
		case OpDelete:
			name := vm.ToString(vm.pop(f))
			obj := vm.pop(f).Object()
			vm.push(f, Bool(vm.DeleteMember(obj, name)))
		case OpDelete2:
			vm.push(f, Bool(vm.deleteVariable(f, vm.ToString(vm.pop(f)))))

		// --- objects ------------------------------------------------------
		case OpGetMember:
			name := vm.pop(f)
			obj := vm.pop(f)
			if sr := superOf(obj); sr != nil {
				v, _ := vm.getMember(sr.proto, sr.this, vm.ToString(name))
				vm.push(f, v)
				break
			}
			vm.push(f, vm.GetValueMember(obj, vm.ToString(name)))
		case OpSetMember:
			v := vm.pop(f)
			name := vm.ToString(vm.pop(f))
			if obj := vm.pop(f).Object(); obj != nil {
				vm.SetMember(obj, name, v)
			}
		case OpInitArray:
			n := vm.popCount(f)
			vm.push(f, Obj(vm.NewArray(vm.popArgs(f, n))))
		case OpInitObject:
			n := vm.ToNumber(vm.pop(f))
			if math.IsNaN(n) || n < 0 || int(n)*2 > len(f.stack) {
				vm.fail(f, "stack underflow")
			}
			o := vm.NewObject()
			for i := 0; i < int(n); i++ {
				v := vm.pop(f)
				o.Put(vm.ToString(vm.pop(f)), v)
			}
			vm.push(f, Obj(o))
		case OpEnumerate:
			vm.enumerate(f, vm.getVariable(f, vm.ToString(vm.pop(f))))
		case OpEnumerate2:
			vm.enumerate(f, vm.pop(f))
		case OpTypeOf:
			vm.push(f, String(vm.TypeOf(vm.pop(f))))
		case OpInstanceOf:
			ctor := vm.pop(f).Object()
			obj := vm.pop(f).Object()
			vm.push(f, Bool(vm.InstanceOf(obj, ctor)))
		case OpCastOp:
			obj := vm.pop(f)
			ctor := vm.pop(f).Object()
			if vm.InstanceOf(obj.Object(), ctor) {
				vm.push(f, obj)
			} else {
				vm.push(f, Null)
			}
		case OpImplementsOp:
			ctor := vm.pop(f).Object()
			n := vm.popCount(f)
			ifaces := make([]*Object, 0, n)
			for _, v := range vm.popArgs(f, n) {
				if o := v.Object(); o != nil {
					ifaces = append(ifaces, o)
				}
			}
			if ctor != nil {
				if proto := vm.GetMember(ctor, "prototype").Object(); proto != nil {
					proto.interfaces = ifaces
				}
			}
		case OpExtends:
			super := vm.pop(f).Object()
			sub := vm.pop(f).Object()
			if super == nil || sub == nil {
				break
			}
			proto := vm.NewObjectWithProto(vm.GetMember(super, "prototype").Object(), "Object")
			proto.Define("__constructor__", Obj(super), DontEnum)
			proto.Define("constructor", Obj(sub), DontEnum)
			sub.Define("prototype", Obj(proto), DontEnum)

		// --- calls --------------------------------------------------------
		case OpCallFunction:
			name := vm.ToString(vm.pop(f))
			n := vm.popCount(f)
			args := vm.popArgs(f, n)
			fn := vm.getVariable(f, name)
			if sr := superOf(fn); sr != nil {
				vm.push(f, vm.callSuper(sr, args))
				break
			}
			vm.push(f, vm.callValue(fn, Undefined, args, nil))
		case OpCallMethod:
			vm.push(f, vm.callMethodOp(f))
		case OpNewObject:
			name := vm.ToString(vm.pop(f))
			n := vm.popCount(f)
			args := vm.popArgs(f, n)
			vm.push(f, vm.construct(vm.getVariable(f, name).Object(), args))
		case OpNewMethod:
			name := vm.pop(f)
			obj := vm.pop(f)
			n := vm.popCount(f)
			args := vm.popArgs(f, n)
			ctor := obj.Object()
			if s := vm.ToString(name); !name.IsUndefined() && s != "" {
				ctor = vm.GetValueMember(obj, s).Object()
			}
			vm.push(f, vm.construct(ctor, args))
		case OpDefineFunction:
			vm.defineFunction(f, act, false)
		case OpDefineFunction2:
			vm.defineFunction(f, act, true)

		// --- SWF 5+ operators ---------------------------------------------
		case OpAdd2:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, vm.Add(a, b))
		case OpLess2:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, relational(vm.Less(a, b)))
		case OpGreater:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, relational(vm.Less(b, a)))
		case OpEquals2:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, Bool(vm.LooseEquals(a, b)))
		case OpStrictEquals:
			b, a := vm.pop(f), vm.pop(f)
			vm.push(f, Bool(StrictEquals(a, b)))
		case OpToNumber:
			vm.push(f, Number(vm.ToNumber(vm.pop(f))))
		case OpToString:
			vm.push(f, String(vm.ToString(vm.pop(f))))
		case OpIncrement:
			vm.push(f, Number(vm.ToNumber(vm.pop(f))+1))
		case OpDecrement:
			vm.push(f, Number(vm.ToNumber(vm.pop(f))-1))
		case OpBitAnd:
			b, a := vm.ToInt32(vm.pop(f)), vm.ToInt32(vm.pop(f))
			vm.push(f, Number(float64(a&b)))
		case OpBitOr:
			b, a := vm.ToInt32(vm.pop(f)), vm.ToInt32(vm.pop(f))
			vm.push(f, Number(float64(a|b)))
		case OpBitXor:
			b, a := vm.ToInt32(vm.pop(f)), vm.ToInt32(vm.pop(f))
			vm.push(f, Number(float64(a^b)))
		case OpBitLShift:
			b, a := vm.ToUint32(vm.pop(f)), vm.ToInt32(vm.pop(f))
			vm.push(f, Number(float64(a<<(b&31))))
		case OpBitRShift:
			b, a := vm.ToUint32(vm.pop(f)), vm.ToInt32(vm.pop(f))
			vm.push(f, Number(float64(a>>(b&31))))
		case OpBitURShift:
			b, a := vm.ToUint32(vm.pop(f)), vm.ToUint32(vm.pop(f))
			vm.push(f, Number(float64(a>>(b&31))))

		default:
			vm.fail(f, "unknown opcode")
		}
	}
}

func relational(less, undefined bool) Value {
	if undefined {
		return Undefined
	}
	return Bool(less)
}

func extract(s []uint16, start, count int) string {
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		return ""
	}
	end := len(s)
	if count >= 0 && start+count < end {
		end = start + count
	}
	return fromUnits(s[start:end])
}

func (vm *VM) checkPayload(f *frame, r *payloadReader) {
	if r.err {
		vm.fail(f, "truncated payload")
	}
}

func (vm *VM) jump(f *frame, a action) {
	r := &payloadReader{b: a.payload}
	off := int(r.i16())
	vm.checkPayload(f, r)
	target := a.next + off
	if target < 0 || target > len(f.code) {
		vm.fail(f, "jump outside code")
	}
	f.ip = target
}

func (vm *VM) execPush(f *frame, payload []byte) {
	r := &payloadReader{b: payload}
	for r.more() {
		switch kind := r.u8(); kind {
		case pushString:
			vm.push(f, String(r.str()))
		case pushFloat:
			vm.push(f, Number(r.f32()))
		case pushNull:
			vm.push(f, Null)
		case pushUndefined:
			vm.push(f, Undefined)
		case pushRegister:
			reg := int(r.u8())
			if reg >= len(f.regs) {
				vm.fail(f, "register out of range")
			}
			vm.push(f, f.regs[reg])
		case pushBoolean:
			vm.push(f, Bool(r.u8() != 0))
		case pushDouble:
			vm.push(f, Number(r.f64()))
		case pushInteger:
			vm.push(f, Number(float64(int32(r.u32()))))
		case pushConstant8, pushConstant6:
			var idx int
			if kind == pushConstant8 {
				idx = int(r.u8())
			} else {
				idx = int(r.u16())
			}
			if idx >= len(f.pool) {
				vm.fail(f, "constant pool index out of range")
			}
			vm.push(f, String(f.pool[idx]))
		default:
			vm.fail(f, "unknown push type")
		}
		vm.checkPayload(f, r)
	}
}

func (vm *VM) execTry(f *frame, a action) {
	r := &payloadReader{b: a.payload}
	flags := r.u8()
	trySize, catchSize, finallySize := int(r.u16()), int(r.u16()), int(r.u16())
	h := tryHandler{
		hasCatch:   flags&1 != 0,
		hasFinally: flags&2 != 0,
		catchInReg: flags&4 != 0,
		stackDepth: len(f.stack),
		withDepth:  len(f.withs),
	}
	if h.catchInReg {
		h.catchReg = r.u8()
	} else {
		h.catchName = r.str()
	}
	vm.checkPayload(f, r)
	h.tryStart = a.next
	h.catchStart = h.tryStart + trySize
	h.finallyStart = h.catchStart + catchSize
	h.end = h.finallyStart + finallySize
	if h.end > len(f.code) {
		vm.fail(f, "try block runs past end of code")
	}
	f.handlers = append(f.handlers, h)
}

func (vm *VM) enumerate(f *frame, v Value) {
	vm.push(f, Null)
	o := v.Object()
	if o == nil {
		return
	}
	keys := vm.EnumerableKeys(o)
	for i := len(keys) - 1; i >= 0; i-- {
		vm.push(f, String(keys[i]))
	}
}

func (vm *VM) gotoFrame2(f *frame, v Value, play bool, bias int) {
	tl := vm.Timeline
	if tl == nil {
		return
	}
	target := f.target
	if v.IsString() {
		s := v.s
		if i := strings.LastIndexByte(s, ':'); i >= 0 {
			target = tl.ResolveTarget(f.target, s[:i])
			s = s[i+1:]
		}
		if n := parseNumber(s); !math.IsNaN(n) && s != "" {
			tl.GotoFrame(target, int(n)+bias)
		} else if !tl.GotoLabel(target, s) {
			return
		}
	} else {
		tl.GotoFrame(target, int(vm.ToNumber(v))+bias)
	}
	if play {
		tl.Play(target)
	} else {
		tl.Stop(target)
	}
}

func (vm *VM) setTarget(f *frame, v Value) {
	if o := v.Object(); o != nil {
		f.target = o
		return
	}
	path := vm.ToString(v)
	if path == "" || vm.Timeline == nil {
		f.target = f.home
		return
	}
	if t := vm.Timeline.ResolveTarget(f.home, path); t != nil {
		f.target = t
	}
}

func (vm *VM) propertyTarget(f *frame, v Value) *Object {
	if o := v.Object(); o != nil {
		return o
	}
	path := vm.ToString(v)
	if path == "" {
		return f.target
	}
	if vm.Timeline == nil {
		return nil
	}
	return vm.Timeline.ResolveTarget(f.target, path)
}

// propertyNames maps GetProperty/SetProperty indexes to member names.
var propertyNames = []string{
	"_x", "_y", "_xscale", "_yscale", "_currentframe", "_totalframes",
	"_alpha", "_visible", "_width", "_height", "_rotation", "_target",
	"_framesloaded", "_name", "_droptarget", "_url", "_highquality",
	"_focusrect", "_soundbuftime", "_quality", "_xmouse", "_ymouse",
}

// PropertyName returns the member name of a GetProperty index.
func PropertyName(index int) (string, bool) {
	if index < 0 || index >= len(propertyNames) {
		return "", false
	}
	return propertyNames[index], true
}
