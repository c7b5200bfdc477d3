package output

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scandog/scandog/internal/record"
)

// msgpackSerializer is the binary-record format: the same document shape
// as JSON, MessagePack-encoded.
type msgpackSerializer struct{}

func (msgpackSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	return msgpack.NewEncoder(w).Encode(payload(tree, summary))
}
