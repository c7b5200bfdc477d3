// Package record provides the shared data model for scan results: per-file
// records, the nested directory tree and the run summary.
package record

import (
	"path/filepath"
	"strings"
)

// Type classifies a processed file.
type Type string

const (
	TypeText     Type = "text"
	TypeBinary   Type = "binary"
	TypeExcluded Type = "excluded"
	TypeError    Type = "error"
)

// Reason explains why a file was excluded by the processor.
type Reason string

const (
	ReasonSize          Reason = "size"
	ReasonBinaryOrImage Reason = "binary_or_image"
)

// FileRecord is one entry per processed file. Exactly one Type variant
// applies; fields outside that variant's contract stay unset and are
// omitted from serialized output:
//
//	text     - Content, Encoding, metadata, Hash
//	binary   - Content (base64), metadata, Hash
//	excluded - Reason
//	error    - Error
//
// Content and Size are pointers so that an empty file's content and a
// zero size still serialize; nil means the field does not apply to the
// variant.
type FileRecord struct {
	Type     Type    `json:"type" yaml:"type" msgpack:"type"`
	Content  *string `json:"content,omitempty" yaml:"content,omitempty" msgpack:"content,omitempty"`
	Encoding string  `json:"encoding,omitempty" yaml:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Reason   Reason  `json:"reason,omitempty" yaml:"reason,omitempty" msgpack:"reason,omitempty"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`

	Size        *int64  `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size,omitempty"`
	Created     float64 `json:"created,omitempty" yaml:"created,omitempty" msgpack:"created,omitempty"`
	Modified    float64 `json:"modified,omitempty" yaml:"modified,omitempty" msgpack:"modified,omitempty"`
	Permissions string  `json:"permissions,omitempty" yaml:"permissions,omitempty" msgpack:"permissions,omitempty"`
	Hash        string  `json:"hash,omitempty" yaml:"hash,omitempty" msgpack:"hash,omitempty"`
}

// DirectoryTree maps a path segment to either a nested *DirectoryTree or a
// terminal *FileRecord. It is rebuilt on every run and mutated only by the
// pipeline's collector.
type DirectoryTree map[string]any

// Insert places rec under the subtree addressed by parts, creating
// intermediate subtrees as needed. A name colliding with an existing
// subtree replaces it; traversal never produces such a collision.
func (t DirectoryTree) Insert(parts []string, name string, rec *FileRecord) {
	current := t
	for _, part := range parts {
		sub, ok := current[part].(DirectoryTree)
		if !ok {
			sub = DirectoryTree{}
			current[part] = sub
		}
		current = sub
	}
	current[name] = rec
}

// SplitRel breaks a parent directory into tree path segments relative to
// root. A parent equal to root yields no segments.
func SplitRel(root, parent string) []string {
	rel, err := filepath.Rel(root, parent)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}

// FailedFile identifies one file whose processing ended in an error record.
type FailedFile struct {
	Path  string `json:"path" yaml:"path" msgpack:"path"`
	Error string `json:"error" yaml:"error" msgpack:"error"`
}

// RunSummary aggregates per-run counters. It is created once during
// finalization and immutable afterwards. Included+Excluded equals Total
// for a completed run and is at most Total for an interrupted one.
type RunSummary struct {
	Total              int          `json:"total" yaml:"total" msgpack:"total"`
	Included           int          `json:"included" yaml:"included" msgpack:"included"`
	Excluded           int          `json:"excluded" yaml:"excluded" msgpack:"excluded"`
	ExcludedPercentage float64      `json:"excluded_percentage" yaml:"excluded_percentage" msgpack:"excluded_percentage"`
	Failed             []FailedFile `json:"failed" yaml:"failed" msgpack:"failed"`
	Algorithm          string       `json:"algorithm,omitempty" yaml:"algorithm,omitempty" msgpack:"algorithm,omitempty"`
}
