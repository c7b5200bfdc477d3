package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/scandog/scandog/internal/record"
)

// csvSerializer flattens the tree into one row per file. Content is left
// out on purpose; CSV is the metadata-oriented format.
type csvSerializer struct{}

func (csvSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"path", "type", "size", "encoding", "hash", "reason", "error"}); err != nil {
		return err
	}

	var err error
	walkTree(tree, "", func(parent, name string, rec *record.FileRecord) {
		if err != nil {
			return
		}
		size := ""
		if rec.Size != nil {
			size = strconv.FormatInt(*rec.Size, 10)
		}
		err = cw.Write([]string{
			joinPath(parent, name),
			string(rec.Type),
			size,
			rec.Encoding,
			rec.Hash,
			string(rec.Reason),
			rec.Error,
		})
	})
	if err != nil {
		return err
	}

	if summary != nil {
		if err := cw.Write([]string{
			"#summary",
			fmt.Sprintf("total=%d", summary.Total),
			fmt.Sprintf("included=%d", summary.Included),
			fmt.Sprintf("excluded=%d", summary.Excluded),
			fmt.Sprintf("excluded_percentage=%.2f", summary.ExcludedPercentage),
			fmt.Sprintf("failed=%d", len(summary.Failed)),
			summary.Algorithm,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
