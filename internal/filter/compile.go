package filter

import "github.com/hypertrace/config-service-go/internal/docstore"

// Compile translates a public predicate tree into the adapter-native form,
// rewriting every leaf path "x.y.z" to the storage path "config.x.y.z":
// predicates always apply to the opaque config subtree, never to
// version/tenantId/etc. directly. It performs no constant folding and no
// child reordering, since either could change NULL-handling semantics on
// the adapter side.
//
// Compile validates the tree first and returns a *Error for anything
// structurally invalid: unknown operators, or empty AND/OR. Callers map
// that to InvalidArgument.
func Compile(e Expr) (docstore.Expr, error) {
	if e == nil {
		return nil, nil
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	return compile(e), nil
}

func compile(e Expr) docstore.Expr {
	switch n := e.(type) {
	case *Relational:
		return &docstore.Relational{
			Path: "config." + n.Path,
			Op:   docstore.RelOp(n.Op),
			RHS:  n.RHS,
		}
	case *Logical:
		children := make([]docstore.Expr, len(n.Children))
		for i, c := range n.Children {
			children[i] = compile(c)
		}
		return &docstore.Logical{Op: docstore.LogOp(n.Op), Children: children}
	default:
		// Unreachable: Validate rejects anything else before we get here.
		return nil
	}
}
