package exprlang

import "fmt"

// CheckStatic walks node and reports schema errors that are statically
// detectable without evaluating anything: references to variables outside
// knownVars, calls to functions outside the built-in registry, and a
// case(...) call with an even argument count (no default), per invariant 7
// and the §14 decision that an omitted case() default is a compile-time
// error rather than a silently guessed null.
func CheckStatic(node Node, knownVars map[string]bool, funcs FuncRegistry) error {
	switch n := node.(type) {
	case Literal:
		return nil
	case Variable:
		if !knownVars[n.Name] {
			return fmt.Errorf("%w: %s", ErrUndefinedVariable, n.Name)
		}
		return nil
	case Unary:
		return CheckStatic(n.Operand, knownVars, funcs)
	case Binary:
		if err := CheckStatic(n.Left, knownVars, funcs); err != nil {
			return err
		}
		return CheckStatic(n.Right, knownVars, funcs)
	case Conditional:
		if err := CheckStatic(n.Cond, knownVars, funcs); err != nil {
			return err
		}
		if err := CheckStatic(n.Then, knownVars, funcs); err != nil {
			return err
		}
		return CheckStatic(n.Else, knownVars, funcs)
	case Call:
		if _, ok := funcs[n.Name]; !ok {
			return fmt.Errorf("%w: %s", ErrUndefinedFunction, n.Name)
		}
		if n.Name == "case" && (len(n.Args) < 1 || len(n.Args)%2 == 0) {
			return fmt.Errorf("case: requires an odd number of arguments ending in a default value")
		}
		for _, arg := range n.Args {
			if err := CheckStatic(arg, knownVars, funcs); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown node type", ErrTypeError)
	}
}
