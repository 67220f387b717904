package seiretsu

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// ArchetypeStats describes one archetype of the graph.
type ArchetypeStats struct {
	Signature Signature
	ID        int
	Count     int
	Cap       int
	Edges     int
	Bytes     uintptr // component bytes of the occupied rows
}

// Stats returns one entry per live archetype, in id order.
func (w *World) Stats() []ArchetypeStats {
	out := make([]ArchetypeStats, 0, w.ArchetypeCount())
	for _, a := range w.archetypes {
		if a == nil {
			continue
		}
		var rowSize uintptr
		for _, expr := range a.signature.exprs {
			if ct, ok := w.registry.lookup(expr.TypeID); ok {
				rowSize += ct.size
			}
		}
		out = append(out, ArchetypeStats{
			ID:        a.id,
			Signature: a.signature,
			Count:     a.Count(),
			Cap:       a.Cap(),
			Edges:     len(a.edges),
			Bytes:     rowSize * uintptr(a.Count()),
		})
	}
	return out
}

// WriteStats renders stats as a markdown table followed by a totals line.
func WriteStats(out io.Writer, stats []ArchetypeStats) {
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"id", "signature", "count", "cap", "edges", "bytes"})
	total, bytes := 0, uintptr(0)
	for _, s := range stats {
		table.Append([]string{
			strconv.Itoa(s.ID),
			s.Signature.String(),
			strconv.Itoa(s.Count),
			strconv.Itoa(s.Cap),
			strconv.Itoa(s.Edges),
			strconv.FormatUint(uint64(s.Bytes), 10),
		})
		total += s.Count
		bytes += s.Bytes
	}
	table.Render()
	fmt.Fprintf(out, "\n_%d archetypes, %d rows, %d bytes_\n", len(stats), total, bytes)
}
