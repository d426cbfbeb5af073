// Package dot renders an execution context's registered node metadata as a
// graphviz digraph: one node per shown operator, labeled with its display
// name, operator kind, and cumulative message count, and one edge per
// dependency. Hidden nodes collapse to their shown ancestor, so sugar
// chains (the internal reshaping of ops combinators) do not clutter the
// picture.
package dot

import (
	"fmt"
	"io"
	"strings"

	"github.com/flowcore/differential/dataflow"
)

// Write renders ec's graph to w.
func Write(w io.Writer, ec *dataflow.ExecutionContext) error {
	if _, err := fmt.Fprintln(w, "digraph flow {"); err != nil {
		return err
	}
	infos := ec.Infos()
	for _, info := range infos {
		if !info.Shown {
			continue
		}
		name := ""
		if info.Name != "" {
			name = info.Name + " <br/>"
		}
		if _, err := fmt.Fprintf(w, "  node%d [label=< %s %s <br/> %d >];\n",
			info.RelationID, name, info.OperatorName, info.MessageCount); err != nil {
			return err
		}
	}
	for _, info := range infos {
		if !info.Shown {
			continue
		}
		for _, dep := range info.Deps {
			if _, err := fmt.Fprintf(w, "  node%d -> node%d;\n", dep.ShownRelationID(), info.RelationID); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// Dump renders ec's graph as a string.
func Dump(ec *dataflow.ExecutionContext) string {
	var sb strings.Builder
	_ = Write(&sb, ec)
	return sb.String()
}
