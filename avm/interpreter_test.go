package avm

import (
	"errors"
	"strings"
	"testing"
)

func runScript(t *testing.T, vm *VM, src string) error {
	t.Helper()
	code, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return vm.Run(code, nil, nil)
}

func mustRun(t *testing.T, src string) *VM {
	t.Helper()
	vm := New(DefaultLimits())
	if err := runScript(t, vm, src); err != nil {
		t.Fatalf("run: %v", err)
	}
	return vm
}

func global(vm *VM, name string) Value {
	return vm.GetMember(vm.Global, name)
}

func TestArithmeticAndVariables(t *testing.T) {
	vm := mustRun(t, `
		push "x" 1 2
		add2
		setvariable
		push "y" "x"
		getvariable
		push 10
		multiply
		setvariable
		push "s" "a" 1
		add2
		setvariable
	`)
	if got := global(vm, "x").AsNumber(); got != 3 {
		t.Errorf("x = %v, want 3", got)
	}
	if got := global(vm, "y").AsNumber(); got != 30 {
		t.Errorf("y = %v, want 30", got)
	}
	if got := global(vm, "s").AsString(); got != "a1" {
		t.Errorf("s = %q, want \"a1\"", got)
	}
}

func TestConstantPoolAndRegisters(t *testing.T) {
	vm := mustRun(t, `
		constants "answer" "forty"
		push 42
		storeregister 1
		pop
		push c:0 r:1
		setvariable
	`)
	if got := global(vm, "answer").AsNumber(); got != 42 {
		t.Errorf("answer = %v, want 42", got)
	}
}

func TestLoopWithJump(t *testing.T) {
	vm := mustRun(t, `
		push "i" 0
		setvariable
		push "sum" 0
		setvariable
	top:
		push "i"
		getvariable
		push 5
		less2
		not
		if done
		push "sum" "sum"
		getvariable
		push "i"
		getvariable
		add2
		setvariable
		push "i" "i"
		getvariable
		increment
		setvariable
		jump top
	done:
	`)
	if got := global(vm, "sum").AsNumber(); got != 10 {
		t.Errorf("sum = %v, want 10", got)
	}
}

func TestFunctionCallArgumentOrder(t *testing.T) {
	vm := mustRun(t, `
		function sub(a, b) {
			push "a"
			getvariable
			push "b"
			getvariable
			subtract
			return
		}
		push "r" 3 10 2 "sub"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsNumber(); got != 7 {
		t.Errorf("r = %v, want 7", got)
	}
}

func TestFunction2Registers(t *testing.T) {
	vm := mustRun(t, `
		function2 double(r1:n) regs=2 {
			push r:1 r:1
			add2
			return
		}
		push "r" 21 1 "double"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsNumber(); got != 42 {
		t.Errorf("r = %v, want 42", got)
	}
}

func TestClosureCapturesActivation(t *testing.T) {
	vm := mustRun(t, `
		function make(n) {
			function (x) {
				push "x"
				getvariable
				push "n"
				getvariable
				add2
				return
			}
			return
		}
		push "add5" 5 1 "make"
		callfunction
		setvariable
		push "r" 1 1 "add5"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsNumber(); got != 6 {
		t.Errorf("r = %v, want 6", got)
	}
}

func TestTryCatch(t *testing.T) {
	vm := mustRun(t, `
		try e {
			push "boom"
			throw
			push "unreached" true
			setvariable
		} catch {
			push "caught" "e"
			getvariable
			setvariable
		}
	`)
	if got := global(vm, "caught").AsString(); got != "boom" {
		t.Errorf("caught = %q, want \"boom\"", got)
	}
	if vm.HasMember(vm.Global, "unreached") {
		t.Error("statement after throw executed")
	}
}

func TestFinallyRunsAndRethrows(t *testing.T) {
	vm := mustRun(t, `
		try e {
			try {
				push "inner"
				throw
			} finally {
				push "fin" true
				setvariable
			}
		} catch {
			push "got" "e"
			getvariable
			setvariable
		}
	`)
	if !global(vm, "fin").AsBool() {
		t.Error("finally block did not run")
	}
	if got := global(vm, "got").AsString(); got != "inner" {
		t.Errorf("got = %q, want \"inner\"", got)
	}
}

func TestFinallyOnNormalExit(t *testing.T) {
	vm := mustRun(t, `
		push "log" "a"
		setvariable
		try {
			push "log" "log"
			getvariable
			push "b"
			add2
			setvariable
		} catch {
			push "log" "x"
			setvariable
		} finally {
			push "log" "log"
			getvariable
			push "c"
			add2
			setvariable
		}
	`)
	if got := global(vm, "log").AsString(); got != "abc" {
		t.Errorf("log = %q, want \"abc\"", got)
	}
}

func TestReturnInsideTryRunsFinally(t *testing.T) {
	vm := mustRun(t, `
		push "fin" 0
		setvariable
		function f() {
			try {
				push 1
				return
			} finally {
				push "fin" 1
				setvariable
			}
			push 2
			return
		}
		push "r" 0 "f"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsNumber(); got != 1 {
		t.Errorf("r = %v, want 1", got)
	}
	if got := global(vm, "fin").AsNumber(); got != 1 {
		t.Errorf("fin = %v, want 1 (finally skipped by return)", got)
	}
}

func TestReturnInsideCatchRunsFinally(t *testing.T) {
	vm := mustRun(t, `
		push "log" ""
		setvariable
		function f() {
			try e {
				push "boom"
				throw
			} catch {
				push "caught"
				return
			} finally {
				push "log" "log"
				getvariable
				push "fin"
				add2
				setvariable
			}
			push "fell through"
			return
		}
		push "r" 0 "f"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsString(); got != "caught" {
		t.Errorf("r = %q, want \"caught\"", got)
	}
	if got := global(vm, "log").AsString(); got != "fin" {
		t.Errorf("log = %q, want \"fin\"", got)
	}
}

func TestJumpOutOfTryRunsFinally(t *testing.T) {
	vm := mustRun(t, `
		try {
			push "a" 1
			setvariable
			jump out
			push "after" true
			setvariable
		} finally {
			push "fin" true
			setvariable
		}
		push "skipped" true
		setvariable
	out:
		push "done" true
		setvariable
	`)
	if got := global(vm, "a").AsNumber(); got != 1 {
		t.Errorf("a = %v, want 1", got)
	}
	if !global(vm, "fin").AsBool() {
		t.Error("finally block did not run on jump out of try")
	}
	if vm.HasMember(vm.Global, "after") {
		t.Error("statement after jump executed")
	}
	if vm.HasMember(vm.Global, "skipped") {
		t.Error("jump target ignored after finally")
	}
	if !global(vm, "done").AsBool() {
		t.Error("jump target never reached")
	}
}

func TestReturnRunsNestedFinallyInnermostFirst(t *testing.T) {
	vm := mustRun(t, `
		push "log" ""
		setvariable
		function f() {
			try {
				try {
					push "v"
					return
				} finally {
					push "log" "log"
					getvariable
					push "i"
					add2
					setvariable
				}
			} finally {
				push "log" "log"
				getvariable
				push "o"
				add2
				setvariable
			}
			push "late"
			return
		}
		push "r" 0 "f"
		callfunction
		setvariable
	`)
	if got := global(vm, "log").AsString(); got != "io" {
		t.Errorf("log = %q, want \"io\"", got)
	}
	if got := global(vm, "r").AsString(); got != "v" {
		t.Errorf("r = %q, want \"v\"", got)
	}
}

func TestReturnInsideFinallyOverridesPending(t *testing.T) {
	vm := mustRun(t, `
		function f() {
			try {
				push "try"
				return
			} finally {
				push "finally"
				return
			}
		}
		function g() {
			try {
				push "lost"
				throw
			} finally {
				push "kept"
				return
			}
		}
		push "r" 0 "f"
		callfunction
		setvariable
		push "s" 0 "g"
		callfunction
		setvariable
	`)
	if got := global(vm, "r").AsString(); got != "finally" {
		t.Errorf("r = %q, want \"finally\"", got)
	}
	if got := global(vm, "s").AsString(); got != "kept" {
		t.Errorf("s = %q, want \"kept\"", got)
	}
}

func TestThrowAcrossFunctionBoundary(t *testing.T) {
	vm := mustRun(t, `
		function fail() {
			push "deep"
			throw
		}
		try r:1 {
			push 0 "fail"
			callfunction
			pop
		} catch {
			push "got" r:1
			setvariable
		}
	`)
	if got := global(vm, "got").AsString(); got != "deep" {
		t.Errorf("got = %q, want \"deep\"", got)
	}
}

func TestUncaughtThrowIsScriptFault(t *testing.T) {
	vm := New(DefaultLimits())
	err := runScript(t, vm, `
		push "before" 1
		setvariable
		push "oops"
		throw
	`)
	var fault *ScriptFault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want ScriptFault", err)
	}
	if fault.Kind != FaultUncaught || fault.Message != "oops" {
		t.Errorf("fault = %+v", fault)
	}
	if got := global(vm, "before").AsNumber(); got != 1 {
		t.Errorf("effects before the throw were lost: before = %v", got)
	}
}

func TestInstructionLimit(t *testing.T) {
	vm := New(Limits{MaxInstructions: 1000, MaxCallDepth: 64})
	err := runScript(t, vm, `
	spin:
		jump spin
	`)
	var fault *ScriptFault
	if !errors.As(err, &fault) || fault.Kind != FaultInstructionLimit {
		t.Fatalf("err = %v, want instruction limit fault", err)
	}

	// The budget is per invocation.
	if err := runScript(t, vm, `push "ok" true`+"\nsetvariable"); err != nil {
		t.Fatalf("next invocation: %v", err)
	}
}

func TestRecursionLimit(t *testing.T) {
	vm := New(Limits{MaxInstructions: 1_000_000, MaxCallDepth: 32})
	err := runScript(t, vm, `
		function f() {
			push 0 "f"
			callfunction
			return
		}
		push 0 "f"
		callfunction
		pop
	`)
	var fault *ScriptFault
	if !errors.As(err, &fault) || fault.Kind != FaultStackOverflow {
		t.Fatalf("err = %v, want stack overflow fault", err)
	}
}

func TestTryCannotCatchLimitFault(t *testing.T) {
	vm := New(Limits{MaxInstructions: 500, MaxCallDepth: 64})
	err := runScript(t, vm, `
		try e {
		spin:
			jump spin
		} catch {
			push "caught" true
			setvariable
		}
	`)
	var fault *ScriptFault
	if !errors.As(err, &fault) || fault.Kind != FaultInstructionLimit {
		t.Fatalf("err = %v, want instruction limit fault", err)
	}
	if vm.HasMember(vm.Global, "caught") {
		t.Error("catch block ran for a limit fault")
	}
}

func TestMalformedBytecodeIsInternalError(t *testing.T) {
	vm := New(DefaultLimits())
	err := vm.Run([]byte{byte(OpPush), 5, 0, 0}, nil, nil)
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InternalError", err)
	}

	err = vm.Run([]byte{byte(OpAdd2)}, nil, nil)
	if !errors.As(err, &ie) || !strings.Contains(ie.Msg, "underflow") {
		t.Fatalf("err = %v, want stack underflow", err)
	}
}

func TestObjectsAndMembers(t *testing.T) {
	vm := mustRun(t, `
		push "o" "b" 2 "a" 1 2
		initobject
		setvariable
		push "o"
		getvariable
		push "c" 3
		setmember
		push "n" "o"
		getvariable
		push "c"
		getmember
		setvariable
		push "arr" 30 20 10 3
		initarray
		setvariable
		push "len" "arr"
		getvariable
		push "length"
		getmember
		setvariable
		push "first" "arr"
		getvariable
		push 0
		getmember
		setvariable
	`)
	if got := global(vm, "n").AsNumber(); got != 3 {
		t.Errorf("n = %v, want 3", got)
	}
	if got := global(vm, "len").AsNumber(); got != 3 {
		t.Errorf("len = %v, want 3", got)
	}
	if got := global(vm, "first").AsNumber(); got != 10 {
		t.Errorf("first = %v, want 10", got)
	}
	o := global(vm, "o").Object()
	if got := strings.Join(o.Keys(), ","); got != "a,b,c" {
		t.Errorf("keys = %s, want a,b,c", got)
	}
}

func TestForInEnumeratesInInsertionOrder(t *testing.T) {
	vm := mustRun(t, `
		push "o" "z" 1 "a" 2 "m" 3 3
		initobject
		setvariable
		push "keys" ""
		setvariable
		push "o"
		enumerate
	next:
		storeregister 0
		push null
		equals2
		if done
		push "keys" "keys"
		getvariable
		push r:0
		add2
		setvariable
		jump next
	done:
	`)
	if got := global(vm, "keys").AsString(); got != "maz" {
		t.Errorf("keys = %q", got)
	}
}

func TestClassesWithSuper(t *testing.T) {
	vm := mustRun(t, `
		function Animal(name) {
			push "this"
			getvariable
			push "name" "name"
			getvariable
			setmember
		}
		push "Animal"
		getvariable
		push "prototype"
		getmember
		push "speak"
		function () {
			push "this"
			getvariable
			push "name"
			getmember
			push " makes a sound"
			add2
			return
		}
		setmember

		function Dog(name) {
			push "name"
			getvariable
			push 1 "super"
			callfunction
			pop
		}
		push "Dog"
		getvariable
		push "Animal"
		getvariable
		extends
		push "Dog"
		getvariable
		push "prototype"
		getmember
		push "speak"
		function () {
			push 0 "super"
			getvariable
			push "speak"
			callmethod
			push "!"
			add2
			return
		}
		setmember

		push "d" "rex" 1 "Dog"
		newobject
		setvariable
		push "out" 0 "d"
		getvariable
		push "speak"
		callmethod
		setvariable
		push "isA" "d"
		getvariable
		push "Animal"
		getvariable
		instanceof
		setvariable
	`)
	if got := global(vm, "out").AsString(); got != "rex makes a sound!" {
		t.Errorf("out = %q", got)
	}
	if !global(vm, "isA").AsBool() {
		t.Error("d instanceof Animal = false")
	}
}

func TestVMsAreIsolated(t *testing.T) {
	a := mustRun(t, `
		push "shared" 1
		setvariable
	`)
	b := New(DefaultLimits())
	if b.HasMember(b.Global, "shared") {
		t.Error("global leaked between VMs")
	}
	if a.ObjectProto == b.ObjectProto {
		t.Error("VMs share Object.prototype")
	}
}

func TestHostCallbacks(t *testing.T) {
	vm := New(DefaultLimits())
	var calls []string
	vm.RegisterGlobal("record", func(c *Call) (Value, error) {
		calls = append(calls, c.StringArg(0))
		return Int(len(calls)), nil
	})
	vm.RegisterGlobal("explode", func(c *Call) (Value, error) {
		return Undefined, errors.New("kaboom")
	})
	if err := runScript(t, vm, `
		push "hello" 1 "record"
		callfunction
		pop
		try e {
			push 0 "explode"
			callfunction
		} catch {
			push "msg" "e"
			getvariable
			push "message"
			getmember
			setvariable
		}
	`); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "hello" {
		t.Errorf("calls = %v", calls)
	}
	if got := global(vm, "msg").AsString(); got != "kaboom" {
		t.Errorf("msg = %q, want \"kaboom\"", got)
	}
}

func TestTrace(t *testing.T) {
	vm := New(DefaultLimits())
	var out []string
	vm.Trace = func(msg string) { out = append(out, msg) }
	if err := runScript(t, vm, `
		push "hi"
		trace
		push 1.5
		trace
	`); err != nil {
		t.Fatal(err)
	}
	if strings.Join(out, "|") != "hi|1.5" {
		t.Errorf("trace output = %v", out)
	}
}
