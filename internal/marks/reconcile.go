package marks

import (
	"log/slog"

	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// Class is the verdict on a blob or a left-over candidate.
type Class int

const (
	// ClassOK confirms a sampled bubble with a blob of plausible size.
	ClassOK Class = iota
	// ClassTooBig is a blob at or above the maximum radius; its bubble is
	// discarded.
	ClassTooBig
	// ClassTooSmall is a blob at or below the minimum radius.
	ClassTooSmall
	// ClassUnfilled is a blob next to a bubble that sampled as blank.
	ClassUnfilled
	// ClassIgnored is a blob too far from every bubble.
	ClassIgnored
	// ClassFallback is a sampled bubble never settled by any blob.
	ClassFallback
)

var classNames = [...]string{"ok", "too-big", "too-small", "unfilled", "ignored", "fallback"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Classes lists every class in declaration order.
func Classes() []Class {
	return []Class{ClassOK, ClassTooBig, ClassTooSmall, ClassUnfilled, ClassIgnored, ClassFallback}
}

// Decision records how one blob or candidate was classified. Blob is -1 for
// fallback decisions, Label is -1 for ignored blobs.
type Decision struct {
	Class    Class
	Blob     int
	Label    int
	Distance float64
}

// Mark is a bubble accepted as filled.
type Mark struct {
	Group    string
	Key      string
	Index    int
	Value    string
	Position utils.Point
	Class    Class
}

// Reconciliation is the outcome of matching blobs against candidates.
type Reconciliation struct {
	Marks     []Mark
	Decisions []Decision
	// OutOfBand counts blobs outside the answer band.
	OutOfBand int
}

// Count returns the number of decisions of class c.
func (r Reconciliation) Count(c Class) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Class == c {
			n++
		}
	}
	return n
}

// Reconcile matches every in-band blob with its nearest bubble and decides
// which bubbles are filled. Candidates that no blob settled are accepted as
// fallback marks. The inputs are not modified.
func Reconcile(c Candidates, blobs []Blob, l *layout.Layout, p Params) Reconciliation {
	pending := make(map[int]bool, len(c.Labels))
	for _, i := range c.Labels {
		pending[i] = true
	}
	var r Reconciliation
	maxDist := p.MatchRatio * l.BubbleRadius

	for bi, b := range blobs {
		if !l.InBand(b.Center.Y) {
			r.OutOfBand++
			continue
		}
		li, dist := l.Nearest(b.Center)
		if li < 0 || dist > maxDist {
			r.Decisions = append(r.Decisions, Decision{Class: ClassIgnored, Blob: bi, Label: -1, Distance: dist})
			continue
		}
		d := Decision{Blob: bi, Label: li, Distance: dist}
		switch {
		case !pending[li]:
			d.Class = ClassUnfilled
		case b.Radius >= l.MaxRadius:
			d.Class = ClassTooBig
			delete(pending, li)
		case b.Radius <= l.MinRadius:
			d.Class = ClassTooSmall
			if p.Undersized == UndersizedReject {
				delete(pending, li)
			}
		default:
			d.Class = ClassOK
			delete(pending, li)
			r.Marks = append(r.Marks, markFor(l, li, ClassOK))
		}
		r.Decisions = append(r.Decisions, d)
		slog.Debug("Blob classified",
			"class", d.Class.String(),
			"label", l.Labels[li].Group+"/"+l.Labels[li].Key,
			"radius", b.Radius,
			"distance", dist)
	}

	for _, li := range c.Labels {
		if !pending[li] {
			continue
		}
		r.Marks = append(r.Marks, markFor(l, li, ClassFallback))
		r.Decisions = append(r.Decisions, Decision{Class: ClassFallback, Blob: -1, Label: li})
		attrs := []any{"label", l.Labels[li].Group + "/" + l.Labels[li].Key}
		if li < len(c.Means) {
			attrs = append(attrs, "mean", c.Means[li])
		}
		slog.Warn("Accepting sampled bubble without a matching blob", attrs...)
	}
	return r
}

func markFor(l *layout.Layout, i int, class Class) Mark {
	lb := l.Labels[i]
	return Mark{
		Group:    lb.Group,
		Key:      lb.Key,
		Index:    lb.Index,
		Value:    lb.Value,
		Position: lb.Center,
		Class:    class,
	}
}
