package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/scandog/scandog/internal/record"
)

type yamlSerializer struct{}

func (yamlSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(payload(tree, summary))
}
