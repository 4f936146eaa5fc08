// Package results turns accepted marks into the per-page result record.
package results

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/omrscan/internal/labels"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/marks"
)

// Characters written into field strings.
const (
	Ambiguous   = "*"
	BlankAnswer = "0"
	BlankUID    = "-"
)

// Grouped holds the values marked per group and field index.
type Grouped map[string]map[int][]string

// Record is the result line of one page.
type Record struct {
	Code    string
	UID     string
	Answers string
}

// String formats the record as "<code>:\t:<uid>:<answers>:".
func (r Record) String() string {
	return fmt.Sprintf("%s:\t:%s:%s:", r.Code, r.UID, r.Answers)
}

// GroupByField collects the values of marks by group and field index, in
// mark order.
func GroupByField(ms []marks.Mark) Grouped {
	g := make(Grouped)
	for _, m := range ms {
		byIndex, ok := g[m.Group]
		if !ok {
			byIndex = make(map[int][]string)
			g[m.Group] = byIndex
		}
		byIndex[m.Index] = append(byIndex[m.Index], m.Value)
	}
	return g
}

// FieldString renders one group: one slot per declared field index, blank
// when nothing was marked, the value for a single mark and Ambiguous for
// more than one.
func FieldString(values map[int][]string, f layout.Field, blank string) string {
	if f.Count <= 0 {
		return ""
	}
	slots := make([]string, f.Count)
	for i := range slots {
		switch v := values[f.Base+i]; len(v) {
		case 0:
			slots[i] = blank
		case 1:
			slots[i] = v[0]
		default:
			slots[i] = Ambiguous
		}
	}
	return strings.Join(slots, "")
}

// Resolve builds the record for a page whose identity symbol read code.
// Groups the form does not declare yield empty strings.
func Resolve(code string, grouped Grouped, fields map[string]layout.Field) Record {
	r := Record{Code: code}
	if f, ok := fields[labels.UIDGroup]; ok {
		r.UID = FieldString(grouped[labels.UIDGroup], f, BlankUID)
	}
	if f, ok := fields[labels.AnswerGroup]; ok {
		r.Answers = FieldString(grouped[labels.AnswerGroup], f, BlankAnswer)
	}
	return r
}

// Assemble is GroupByField followed by Resolve against the layout's fields.
func Assemble(code string, ms []marks.Mark, l *layout.Layout) Record {
	return Resolve(code, GroupByField(ms), l.Fields)
}
