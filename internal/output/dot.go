package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/scandog/scandog/internal/record"
)

// dotSerializer renders the tree as a Graphviz digraph: directories and
// files are nodes, containment is an edge. Content is never included.
type dotSerializer struct{}

func (dotSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	var b strings.Builder
	b.WriteString("digraph scan {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontsize=10];\n")

	counter := 0
	rootID := nextID(&counter)
	label := "/"
	if summary != nil {
		label = fmt.Sprintf("/ (%d files, %d excluded)", summary.Included, summary.Excluded)
	}
	fmt.Fprintf(&b, "  %s [label=%q, style=filled];\n", rootID, label)

	writeDotNodes(&b, tree, rootID, &counter)

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDotNodes(b *strings.Builder, tree record.DirectoryTree, parentID string, counter *int) {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		id := nextID(counter)
		switch node := tree[name].(type) {
		case record.DirectoryTree:
			fmt.Fprintf(b, "  %s [label=%q, style=filled];\n", id, name+"/")
			fmt.Fprintf(b, "  %s -> %s;\n", parentID, id)
			writeDotNodes(b, node, id, counter)
		case *record.FileRecord:
			fmt.Fprintf(b, "  %s [label=%q];\n", id, name+" ("+string(node.Type)+")")
			fmt.Fprintf(b, "  %s -> %s;\n", parentID, id)
		}
	}
}

func nextID(counter *int) string {
	id := fmt.Sprintf("n%d", *counter)
	*counter++
	return id
}
