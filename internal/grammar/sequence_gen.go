package grammar

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// seqItem is a message or a note in the vertical flow of a sequence diagram.
type seqItem struct {
	msg  *diagram.Message
	note *diagram.Note
	seq  int
	b    diagram.Bounds
}

func generateSequence(d *diagram.Document) Output {
	var b strings.Builder
	writeFrontMatter(&b, d.Title)
	b.WriteString("sequenceDiagram\n")

	actors := slices.Clone(d.Actors)
	if allSized(actors, func(a *diagram.Actor) diagram.Bounds { return a.Bounds }) {
		slices.SortStableFunc(actors, func(x, y *diagram.Actor) int { return cmp.Compare(x.Bounds.X, y.Bounds.X) })
	}
	for _, a := range actors {
		if a.DisplayName != "" && a.DisplayName != a.ID {
			b.WriteString(fmt.Sprintf("    participant %s as %s\n", a.ID, oneLine(a.DisplayName)))
		} else {
			b.WriteString(fmt.Sprintf("    participant %s\n", a.ID))
		}
	}

	for _, it := range sequenceItems(d) {
		if it.msg != nil {
			m := it.msg
			arrow := m.Arrow
			if arrow == "" {
				arrow = diagram.ArrowSync
			}
			b.WriteString(strings.TrimRight(fmt.Sprintf("    %s%s%s: %s", m.From, arrow, m.To, oneLine(m.Text)), " ") + "\n")
			continue
		}
		actor, placement, ok := noteAnchor(d, actors, it.note)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("    Note %s %s: %s\n", placement, actor, oneLine(it.note.Text)))
	}

	return Output{Text: b.String()}
}

// sequenceItems merges messages and notes, dropping messages with a missing
// endpoint. Items are ordered by vertical position when every item has
// geometry, by sequence number otherwise.
func sequenceItems(d *diagram.Document) []seqItem {
	var items []seqItem
	for _, m := range d.Messages {
		if !d.Has(diagram.KindActor, m.From) || !d.Has(diagram.KindActor, m.To) {
			continue
		}
		items = append(items, seqItem{msg: m, seq: m.Seq, b: m.Bounds})
	}
	for _, n := range d.Notes {
		items = append(items, seqItem{note: n, seq: n.Seq, b: n.Bounds})
	}

	byGeometry := allSized(items, func(it seqItem) diagram.Bounds { return it.b })
	slices.SortStableFunc(items, func(x, y seqItem) int {
		if byGeometry {
			if c := cmp.Compare(x.b.Y, y.b.Y); c != 0 {
				return c
			}
		}
		return cmp.Compare(x.seq, y.seq)
	})
	return items
}

// noteAnchor resolves the actor and placement a note is written against. A
// placed note attaches to the horizontally closest actor (first wins on a
// tie); otherwise the stored actor and placement are used. A note aligned
// exactly with its own actor keeps an "over" placement.
func noteAnchor(d *diagram.Document, actors []*diagram.Actor, n *diagram.Note) (string, diagram.Placement, bool) {
	if !n.Bounds.Empty() {
		var closest *diagram.Actor
		best := math.Inf(1)
		for _, a := range actors {
			if a.Bounds.Empty() {
				continue
			}
			if dist := math.Abs(a.Bounds.X - n.Bounds.X); dist < best {
				best, closest = dist, a
			}
		}
		if closest != nil {
			if best == 0 && closest.ID == n.ActorID && n.Placement == diagram.PlacementOver {
				return closest.ID, diagram.PlacementOver, true
			}
			if n.Bounds.X > closest.Bounds.X {
				return closest.ID, diagram.PlacementRight, true
			}
			return closest.ID, diagram.PlacementLeft, true
		}
	}
	if !d.Has(diagram.KindActor, n.ActorID) {
		return "", "", false
	}
	placement := n.Placement
	if placement == "" {
		placement = diagram.PlacementRight
	}
	return n.ActorID, placement, true
}

// allSized reports whether every item has geometry. An empty list is not
// considered sized.
func allSized[T any](items []T, bounds func(T) diagram.Bounds) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if bounds(it).Empty() {
			return false
		}
	}
	return true
}
