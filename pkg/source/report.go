package source

import (
	"fmt"
	"sort"
	"time"

	"github.com/ynnoj/gatsby-source-printful/pkg/node"
)

// Diagnostic kinds
const (
	KindTransform = "transform"
	KindAsset     = "asset"
	KindLink      = "link"
	KindDuplicate = "duplicate"
)

// Diagnostic is an isolated failure. The affected record was still emitted
// unless Kind is transform or duplicate.
type Diagnostic struct {
	Kind     string
	NodeType string
	RecordID string
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %v", d.Kind, d.NodeType, d.RecordID, d.Err)
}

// Report summarizes one run
type Report struct {
	// Counts is the number of nodes handed to the sink per node type
	Counts      map[string]int
	Stats       node.Stats
	Diagnostics []Diagnostic
	Duration    time.Duration
}

// Total is the number of nodes emitted
func (r *Report) Total() int {
	total := 0
	for _, c := range r.Counts {
		total += c
	}
	return total
}

// Failed filters diagnostics by kind
func (r *Report) Failed(kind string) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func sortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Kind != ds[j].Kind {
			return ds[i].Kind < ds[j].Kind
		}
		if ds[i].NodeType != ds[j].NodeType {
			return ds[i].NodeType < ds[j].NodeType
		}
		return ds[i].RecordID < ds[j].RecordID
	})
}
