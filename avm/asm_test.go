package avm

import (
	"errors"
	"strings"
	"testing"
)

func TestAssembleEncoding(t *testing.T) {
	code, err := Assemble(`
		; comments and blank lines are ignored

		push "a" 1
		pop
		stop
	`)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		byte(OpPush), 8, 0,
		pushString, 'a', 0,
		pushInteger, 1, 0, 0, 0,
		byte(OpPop),
		byte(OpStop),
		byte(OpEnd),
	}
	if string(code) != string(want) {
		t.Errorf("code = % X\nwant % X", code, want)
	}
}

func TestAssembleJumps(t *testing.T) {
	code := MustAssemble(`
	top:
		push true
		if top
		jump end
		stop
	end:
	`)
	// push true: 3+2 bytes, If at 5, Jump at 10, Stop at 15, End at 16.
	if got := int(int16(uint16(code[8]) | uint16(code[9])<<8)); got != -10 {
		t.Errorf("If offset = %d, want -10", got)
	}
	if got := int(int16(uint16(code[13]) | uint16(code[14])<<8)); got != 1 {
		t.Errorf("Jump offset = %d, want 1", got)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown action", "frobnicate"},
		{"bad push operand", "push @"},
		{"unterminated string", `push "abc`},
		{"missing brace", "with {\n push 1"},
		{"stray brace", "}"},
		{"undefined label", "jump nowhere"},
		{"payload op without operands", "push"},
		{"operands on plain op", "pop 1"},
		{"duplicate label", "x:\nx:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Assemble(tt.src); err == nil {
				t.Errorf("Assemble(%q) succeeded", tt.src)
			}
		})
	}

	_, err := Assemble("push 1\nbogus")
	var ae *AsmError
	if !errors.As(err, &ae) || ae.Line != 2 {
		t.Errorf("err = %v, want error on line 2", err)
	}
}

func TestDisassemble(t *testing.T) {
	code := MustAssemble(`
		constants "x" "y"
		push c:0 2.5 r:1 "s" null
		gotoframe 3
		function2 f(r1:a, b) regs=2 flags=preloadthis {
			push r:1
			return
		}
		try e {
			push 1
			throw
		} catch {
		}
	`)
	out, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`0000  ConstantPool "x" "y"`,
		`Push c:0 2.5 r:1 "s" null`,
		`GotoFrame 3`,
		`DefineFunction2 f(r1:a, b) regs=2 flags=0x001 size=`,
		`Try "e" try=`,
		`Throw`,
		`End`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleTruncated(t *testing.T) {
	if _, err := Disassemble([]byte{byte(OpPush), 9, 0}); err == nil {
		t.Error("truncated payload not reported")
	}
}
