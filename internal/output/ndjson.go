package output

import (
	"encoding/json"
	"io"

	"github.com/scandog/scandog/internal/pipeline"
	"github.com/scandog/scandog/internal/record"
)

// ndjsonSerializer emits one JSON object per processed file followed by
// a {"summary": ...} line. Materialized trees are flattened into the
// same line shape the streaming mode produces.
type ndjsonSerializer struct{}

func (ndjsonSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var err error
	walkTree(tree, "", func(parent, name string, rec *record.FileRecord) {
		if err != nil {
			return
		}
		err = enc.Encode(pipeline.Event{Parent: parent, Filename: name, Record: rec})
	})
	if err != nil {
		return err
	}

	if summary != nil {
		return enc.Encode(pipeline.Event{Summary: summary})
	}
	return nil
}

// WriteStream serializes pipeline events as they arrive, one JSON line
// each. The summary sentinel event is written like any other line; the
// stream ends when the channel closes.
func WriteStream(w io.Writer, events <-chan pipeline.Event) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}
