package avm

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a listing of code, one action per line with its
// offset. Jump targets are printed as absolute offsets.
func Disassemble(code []byte) (string, error) {
	var sb strings.Builder
	for ip := 0; ip < len(code); {
		act, err := decodeAt(code, ip)
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fmt.Sprintf("%04X  %s", ip, act.op.Name()))
		if operands := formatOperands(act); operands != "" {
			sb.WriteString(" ")
			sb.WriteString(operands)
		}
		sb.WriteString("\n")
		if act.op == OpEnd {
			break
		}
		ip = act.next
	}
	return sb.String(), nil
}

func formatOperands(act action) string {
	r := &payloadReader{b: act.payload}
	switch act.op {
	case OpPush:
		var parts []string
		for r.more() && !r.err {
			switch kind := r.u8(); kind {
			case pushString:
				parts = append(parts, strconv.Quote(r.str()))
			case pushFloat:
				parts = append(parts, "f:"+formatNumber(r.f32()))
			case pushNull:
				parts = append(parts, "null")
			case pushUndefined:
				parts = append(parts, "undefined")
			case pushRegister:
				parts = append(parts, fmt.Sprintf("r:%d", r.u8()))
			case pushBoolean:
				parts = append(parts, strconv.FormatBool(r.u8() != 0))
			case pushDouble:
				n := r.f64()
				s := formatNumber(n)
				if n == float64(int32(n)) && !strings.ContainsAny(s, ".eE") {
					s += ".0"
				}
				parts = append(parts, s)
			case pushInteger:
				parts = append(parts, strconv.Itoa(int(int32(r.u32()))))
			case pushConstant8:
				parts = append(parts, fmt.Sprintf("c:%d", r.u8()))
			case pushConstant6:
				parts = append(parts, fmt.Sprintf("c:%d", r.u16()))
			default:
				parts = append(parts, fmt.Sprintf("?%d", kind))
				return strings.Join(parts, " ")
			}
		}
		return strings.Join(parts, " ")
	case OpConstantPool:
		n := int(r.u16())
		parts := make([]string, 0, n)
		for i := 0; i < n && !r.err; i++ {
			parts = append(parts, strconv.Quote(r.str()))
		}
		return strings.Join(parts, " ")
	case OpJump, OpIf:
		off := int(r.i16())
		return fmt.Sprintf("-> %04X", act.next+off)
	case OpGotoFrame:
		return strconv.Itoa(int(r.u16()) + 1)
	case OpGoToLabel, OpSetTarget:
		return strconv.Quote(r.str())
	case OpGetURL:
		u, w := r.str(), r.str()
		return strconv.Quote(u) + " " + strconv.Quote(w)
	case OpGetURL2, OpStoreRegister, OpWaitForFrame2:
		return strconv.Itoa(int(r.u8()))
	case OpWaitForFrame:
		frame := r.u16()
		return fmt.Sprintf("%d %d", frame, r.u8())
	case OpGotoFrame2:
		flags := r.u8()
		s := "stop"
		if flags&1 != 0 {
			s = "play"
		}
		if flags&2 != 0 {
			s += fmt.Sprintf(" bias=%d", r.u16())
		}
		return s
	case OpWith:
		return fmt.Sprintf("size=%d", r.u16())
	case OpDefineFunction, OpDefineFunction2:
		name := r.str()
		n := int(r.u16())
		var extra string
		params := make([]string, 0, n)
		if act.op == OpDefineFunction2 {
			regs := r.u8()
			flags := r.u16()
			extra = fmt.Sprintf(" regs=%d flags=0x%03X", regs, flags)
			for i := 0; i < n && !r.err; i++ {
				reg := r.u8()
				p := r.str()
				if reg != 0 {
					p = fmt.Sprintf("r%d:%s", reg, p)
				}
				params = append(params, p)
			}
		} else {
			for i := 0; i < n && !r.err; i++ {
				params = append(params, r.str())
			}
		}
		return fmt.Sprintf("%s(%s)%s size=%d", name, strings.Join(params, ", "), extra, r.u16())
	case OpTry:
		flags := r.u8()
		t, c, f := r.u16(), r.u16(), r.u16()
		target := ""
		if flags&4 != 0 {
			target = fmt.Sprintf("r:%d", r.u8())
		} else {
			target = strconv.Quote(r.str())
		}
		return fmt.Sprintf("%s try=%d catch=%d finally=%d flags=%d", target, t, c, f, flags)
	}
	if len(act.payload) > 0 {
		return fmt.Sprintf("% X", act.payload)
	}
	return ""
}
