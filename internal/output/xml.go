package output

import (
	"encoding/xml"
	"io"
	"sort"

	"github.com/scandog/scandog/internal/record"
)

type xmlSerializer struct{}

type xmlFile struct {
	Name     string `xml:"name,attr"`
	Type     string `xml:"type,attr"`
	Size     int64  `xml:"size,attr,omitempty"`
	Encoding string `xml:"encoding,attr,omitempty"`
	Hash     string `xml:"hash,attr,omitempty"`
	Reason   string `xml:"reason,attr,omitempty"`
	Error    string `xml:"error,attr,omitempty"`
	Content  string `xml:",cdata"`
}

type xmlDirectory struct {
	Name        string         `xml:"name,attr,omitempty"`
	Directories []xmlDirectory `xml:"directory"`
	Files       []xmlFile      `xml:"file"`
}

type xmlDocument struct {
	XMLName   xml.Name     `xml:"scan"`
	Summary   *xmlSummary  `xml:"summary,omitempty"`
	Structure xmlDirectory `xml:"structure"`
}

type xmlSummary struct {
	Total              int         `xml:"total,attr"`
	Included           int         `xml:"included,attr"`
	Excluded           int         `xml:"excluded,attr"`
	ExcludedPercentage float64     `xml:"excluded_percentage,attr"`
	Algorithm          string      `xml:"algorithm,attr,omitempty"`
	Failed             []xmlFailed `xml:"failed"`
}

type xmlFailed struct {
	Path  string `xml:"path,attr"`
	Error string `xml:"error,attr"`
}

func (xmlSerializer) Write(w io.Writer, tree record.DirectoryTree, summary *record.RunSummary) error {
	doc := xmlDocument{Structure: toXMLDirectory("", tree)}
	if summary != nil {
		s := &xmlSummary{
			Total:              summary.Total,
			Included:           summary.Included,
			Excluded:           summary.Excluded,
			ExcludedPercentage: summary.ExcludedPercentage,
			Algorithm:          summary.Algorithm,
		}
		for _, f := range summary.Failed {
			s.Failed = append(s.Failed, xmlFailed{Path: f.Path, Error: f.Error})
		}
		doc.Summary = s
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLDirectory(name string, tree record.DirectoryTree) xmlDirectory {
	dir := xmlDirectory{Name: name}

	names := make([]string, 0, len(tree))
	for n := range tree {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		switch node := tree[n].(type) {
		case record.DirectoryTree:
			dir.Directories = append(dir.Directories, toXMLDirectory(n, node))
		case *record.FileRecord:
			f := xmlFile{
				Name:     n,
				Type:     string(node.Type),
				Encoding: node.Encoding,
				Hash:     node.Hash,
				Reason:   string(node.Reason),
				Error:    node.Error,
			}
			if node.Size != nil {
				f.Size = *node.Size
			}
			if node.Content != nil {
				f.Content = *node.Content
			}
			dir.Files = append(dir.Files, f)
		}
	}
	return dir
}
