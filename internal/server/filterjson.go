package server

import (
	"encoding/json"
	"fmt"

	"github.com/hypertrace/config-service-go/internal/filter"
)

// filterExprJSON is the wire shape for filter.Expr: a discriminated union
// on "type" ("relational" or "logical"), carried in the upsertCondition
// field of PUT .../contexts/{context} bodies.
type filterExprJSON struct {
	Type     string           `json:"type"`
	Path     string           `json:"path,omitempty"`
	Op       string           `json:"op,omitempty"`
	RHS      json.RawMessage  `json:"rhs,omitempty"`
	Children []filterExprJSON `json:"children,omitempty"`
}

func decodeFilterExpr(raw json.RawMessage) (filter.Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var j filterExprJSON
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return buildFilterExpr(j)
}

func buildFilterExpr(j filterExprJSON) (filter.Expr, error) {
	switch j.Type {
	case "relational":
		var rhs any
		if len(j.RHS) > 0 {
			if err := json.Unmarshal(j.RHS, &rhs); err != nil {
				return nil, fmt.Errorf("invalid relational rhs: %w", err)
			}
		}
		return &filter.Relational{Path: j.Path, Op: filter.RelOp(j.Op), RHS: rhs}, nil
	case "logical":
		children := make([]filter.Expr, len(j.Children))
		for i, c := range j.Children {
			child, err := buildFilterExpr(c)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return &filter.Logical{Op: filter.LogOp(j.Op), Children: children}, nil
	default:
		return nil, fmt.Errorf("unknown filter expression type %q", j.Type)
	}
}
