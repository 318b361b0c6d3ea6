package grammar

import (
	"cmp"
	"slices"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// bucket is one emitted section with the items attributed to it. An implicit
// default section has a nil section.
type bucket[T any] struct {
	section *diagram.Section
	name    string
	items   []T
}

// sectioner attributes gantt tasks and journey steps to sections.
type sectioner[T diagram.Element] struct {
	bounds      func(T) diagram.Bounds
	stored      func(T) string
	near        func(section, item diagram.Bounds) bool
	defaultName string
}

// split orders sections and items, then attributes each item: by proximity
// to the first section header in vertical order when both sides carry
// geometry, otherwise by its stored section, otherwise to the default
// section. The default section is merged into a section of the same name or
// emitted first.
func (s sectioner[T]) split(d *diagram.Document, items []T) []bucket[T] {
	sections := slices.Clone(d.Sections)
	if allSized(sections, func(sec *diagram.Section) diagram.Bounds { return sec.Bounds }) {
		slices.SortStableFunc(sections, func(a, b *diagram.Section) int { return cmp.Compare(a.Bounds.Y, b.Bounds.Y) })
	}
	placed := false
	for _, sec := range sections {
		if !sec.Bounds.Empty() {
			placed = true
			break
		}
	}

	items = slices.Clone(items)
	if allSized(items, s.bounds) {
		slices.SortStableFunc(items, func(a, b T) int {
			ba, bb := s.bounds(a), s.bounds(b)
			if c := cmp.Compare(ba.Y, bb.Y); c != 0 {
				return c
			}
			return cmp.Compare(ba.X, bb.X)
		})
	}

	buckets := make([]bucket[T], len(sections))
	index := make(map[string]int, len(sections))
	for i, sec := range sections {
		buckets[i] = bucket[T]{section: sec, name: sec.Name}
		index[sec.ID] = i
	}
	fallback := -1
	for i, sec := range sections {
		if sec.Name == s.defaultName {
			fallback = i
			break
		}
	}
	var orphans []T

	for _, it := range items {
		if b := s.bounds(it); placed && !b.Empty() {
			if i := s.nearest(sections, b); i >= 0 {
				buckets[i].items = append(buckets[i].items, it)
			} else if fallback >= 0 {
				buckets[fallback].items = append(buckets[fallback].items, it)
			} else {
				orphans = append(orphans, it)
			}
			continue
		}
		if i, ok := index[s.stored(it)]; ok {
			buckets[i].items = append(buckets[i].items, it)
			continue
		}
		if fallback >= 0 {
			buckets[fallback].items = append(buckets[fallback].items, it)
			continue
		}
		orphans = append(orphans, it)
	}

	if len(orphans) > 0 {
		buckets = append([]bucket[T]{{name: s.defaultName, items: orphans}}, buckets...)
	}
	return buckets
}

func (s sectioner[T]) nearest(sections []*diagram.Section, item diagram.Bounds) int {
	for i, sec := range sections {
		if !sec.Bounds.Empty() && s.near(sec.Bounds, item) {
			return i
		}
	}
	return -1
}

// sectionGroups converts buckets into the side-channel grouping.
func sectionGroups[T diagram.Element](buckets []bucket[T]) []Group {
	out := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		g := Group{Name: "default", Title: b.name, Members: []string{}}
		if b.section != nil {
			g.Name = b.section.ID
		}
		for _, it := range b.items {
			g.Members = append(g.Members, it.ElementID())
		}
		out = append(out, g)
	}
	return out
}
