// Package output serializes the scan data model. Serializers are simple,
// format-specific transformations over the materialized tree (or, for
// NDJSON, the streaming event sequence); they hold no shared state.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/scandog/scandog/internal/record"
)

// Serializer writes a materialized run result. A nil summary omits the
// summary section.
type Serializer interface {
	Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{"json", "yaml", "ndjson", "csv", "xml", "dot", "msgpack"}
}

// New returns the serializer for format.
func New(format string) (Serializer, error) {
	switch strings.ToLower(format) {
	case "json":
		return jsonSerializer{}, nil
	case "yaml", "yml":
		return yamlSerializer{}, nil
	case "ndjson":
		return ndjsonSerializer{}, nil
	case "csv":
		return csvSerializer{}, nil
	case "xml":
		return xmlSerializer{}, nil
	case "dot":
		return dotSerializer{}, nil
	case "msgpack":
		return msgpackSerializer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats(), ", "))
}

// payload wraps the tree with its summary the way the document formats
// expect: bare tree without a summary, {summary, structure} with one.
func payload(tree record.DirectoryTree, summary *record.RunSummary) any {
	if summary != nil {
		return map[string]any{
			"summary":   summary,
			"structure": tree,
		}
	}
	return tree
}

// walkTree visits every file record depth-first with sorted siblings, so
// row-oriented formats produce deterministic output. parent is the
// slash-joined path relative to the root ("" at the root itself).
func walkTree(tree record.DirectoryTree, parent string, fn func(parent, name string, rec *record.FileRecord)) {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch node := tree[name].(type) {
		case record.DirectoryTree:
			sub := name
			if parent != "" {
				sub = parent + "/" + name
			}
			walkTree(node, sub, fn)
		case *record.FileRecord:
			fn(parent, name, node)
		}
	}
}

// joinPath joins a relative parent and a file name with forward slashes.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
