package compiler

// IsConstant reports whether e is built only from literals and primitive
// applications, so that Eval can compute its value at compile time.
// Variables, let, if and pair forms are never folded, even when all of
// their operands are literals.
func IsConstant(e Expr) bool {
	switch n := e.(type) {
	case *Fixnum, *Boolean, *Character, *EmptyList:
		return true
	case *UnaryPrim:
		return IsConstant(n.Operand)
	case *BinaryPrim:
		return IsConstant(n.Left) && IsConstant(n.Right)
	default:
		return false
	}
}

// Eval computes the tagged word a constant expression evaluates to.
// Arithmetic wraps at 32 bits exactly like the instructions the code
// generator emits for the same tree, so folding never changes a result.
func Eval(e Expr) (int32, error) {
	switch n := e.(type) {
	case *Fixnum:
		return TagFixnum(n.Value), nil
	case *Boolean:
		return TagBool(n.Value), nil
	case *Character:
		return TagChar(n.Value), nil
	case *EmptyList:
		return EmptyListTag, nil

	case *UnaryPrim:
		v, err := Eval(n.Operand)
		if err != nil {
			return 0, err
		}
		return evalUnary(n.Op, v)

	case *BinaryPrim:
		left, err := Eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := Eval(n.Right)
		if err != nil {
			return 0, err
		}
		return evalBinary(n.Op, left, right)

	case nil:
		return 0, CodegenError.New("nil expression")
	default:
		return 0, CodegenError.New("cannot evaluate %T at compile time", e)
	}
}

func evalUnary(op UnaryOp, v int32) (int32, error) {
	switch op {
	case Add1:
		return v + TagFixnum(1), nil
	case Sub1:
		return v - TagFixnum(1), nil
	case IntegerToChar:
		return v<<(CharShift-FixnumShift) | CharTag, nil
	case CharToInteger:
		return int32(uint32(v)>>CharShift) << FixnumShift, nil
	case IsZero:
		return TagBool(v == 0), nil
	case IsNull:
		return TagBool(v == EmptyListTag), nil
	case IsInteger:
		return TagBool(v&FixnumMask == FixnumTag), nil
	case IsBoolean:
		return TagBool(v&(BoolMask&^BoolBit) == BoolTag), nil
	case IsChar:
		return TagBool(v&CharMask == CharTag), nil
	}
	return 0, CodegenError.New("unknown unary primitive %s", op)
}

func evalBinary(op BinaryOp, left, right int32) (int32, error) {
	switch op {
	case Plus:
		return left + right, nil
	case Minus:
		return left - right, nil
	case Multiply:
		return (left * right) >> FixnumShift, nil
	case Equal, CharEqual:
		return TagBool(left == right), nil
	case Less, CharLess:
		return TagBool(left < right), nil
	case Greater:
		return TagBool(left > right), nil
	case LessEqual:
		return TagBool(left <= right), nil
	case GreaterEqual:
		return TagBool(left >= right), nil
	}
	return 0, CodegenError.New("unknown binary primitive %s", op)
}
