package schema

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// ProcedureMatch is one result of SearchProcedures.
type ProcedureMatch struct {
	Procedure *Procedure
	Title     string
	Score     int
}

type procedureSource struct {
	procs  []*Procedure
	titles []string
}

func (p procedureSource) String(i int) string { return p.titles[i] }
func (p procedureSource) Len() int            { return len(p.procs) }

// ProcedureTitle renders "Department › Procedure" in lang.
func (s *Schema) ProcedureTitle(proc *Procedure, lang string, fallbacks ...string) string {
	deptLabel := proc.Department
	for _, d := range s.departments {
		if d.Key == proc.Department {
			deptLabel = d.Label.Or(d.Key, lang, fallbacks...)
			break
		}
	}
	return deptLabel + " › " + proc.Label.Or(proc.Key, lang, fallbacks...)
}

// SearchProcedures fuzzy-matches query against procedure titles. An empty
// query returns the whole catalog in order.
func (s *Schema) SearchProcedures(query, lang string, fallbacks ...string) []ProcedureMatch {
	src := procedureSource{procs: s.Procedures()}
	for _, proc := range src.procs {
		src.titles = append(src.titles, s.ProcedureTitle(proc, lang, fallbacks...))
	}
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]ProcedureMatch, len(src.procs))
		for i, proc := range src.procs {
			out[i] = ProcedureMatch{Procedure: proc, Title: src.titles[i]}
		}
		return out
	}
	matches := fuzzy.FindFrom(query, src)
	out := make([]ProcedureMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, ProcedureMatch{Procedure: src.procs[m.Index], Title: m.Str, Score: m.Score})
	}
	return out
}
