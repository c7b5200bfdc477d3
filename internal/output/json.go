package output

import (
	"encoding/json"
	"io"

	"github.com/scandog/scandog/internal/record"
)

type jsonSerializer struct{}

func (jsonSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(payload(tree, summary))
}
