package diagram

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrDuplicateID is returned when an element id is already taken within its kind.
var ErrDuplicateID = errors.New("duplicate element id")

// Document is the single owned aggregate holding every entity of one diagram.
// It is not safe for concurrent use; callers serialize mutation and generation.
type Document struct {
	Type       Type      `json:"type"`
	Direction  Direction `json:"direction,omitempty"`
	Title      string    `json:"title,omitempty"`
	DateFormat string    `json:"date_format,omitempty"`
	AxisFormat string    `json:"axis_format,omitempty"`

	Nodes       []*Node       `json:"nodes,omitempty"`
	Edges       []*Edge       `json:"edges,omitempty"`
	Actors      []*Actor      `json:"actors,omitempty"`
	Messages    []*Message    `json:"messages,omitempty"`
	Notes       []*Note       `json:"notes,omitempty"`
	Classes     []*Class      `json:"classes,omitempty"`
	Relations   []*Relation   `json:"relations,omitempty"`
	Entities    []*Entity     `json:"entities,omitempty"`
	ERRelations []*ERRelation `json:"er_relations,omitempty"`
	Sections    []*Section    `json:"sections,omitempty"`
	Tasks       []*Task       `json:"tasks,omitempty"`
	Steps       []*Step       `json:"steps,omitempty"`

	index map[Kind]map[string]Element
	seq   int
}

// New creates an empty document of the given type.
func New(t Type) *Document {
	d := &Document{Type: t}
	if t == TypeFlowchart {
		d.Direction = DirectionTD
	}
	d.Reindex()
	return d
}

// Reindex rebuilds the id index from the entity slices. It must be called
// after the slices are modified directly rather than through Add/Remove.
func (d *Document) Reindex() {
	d.index = make(map[Kind]map[string]Element)
	d.seq = 0
	for _, el := range d.Elements() {
		d.put(el)
		switch v := el.(type) {
		case *Message:
			d.seq = max(d.seq, v.Seq)
		case *Note:
			d.seq = max(d.seq, v.Seq)
		}
	}
}

func (d *Document) put(el Element) {
	if d.index == nil {
		d.index = make(map[Kind]map[string]Element)
	}
	m := d.index[el.Kind()]
	if m == nil {
		m = make(map[string]Element)
		d.index[el.Kind()] = m
	}
	m[el.ElementID()] = el
}

// Lookup returns the element of the given kind and id.
func (d *Document) Lookup(kind Kind, id string) (Element, bool) {
	el, ok := d.index[kind][id]
	return el, ok
}

// Has reports whether an element of the given kind and id exists.
func (d *Document) Has(kind Kind, id string) bool {
	_, ok := d.index[kind][id]
	return ok
}

// Node returns the flowchart node with the given id.
func (d *Document) Node(id string) (*Node, bool) {
	el, ok := d.Lookup(KindNode, id)
	if !ok {
		return nil, false
	}
	return el.(*Node), true
}

// Actor returns the sequence participant with the given id.
func (d *Document) Actor(id string) (*Actor, bool) {
	el, ok := d.Lookup(KindActor, id)
	if !ok {
		return nil, false
	}
	return el.(*Actor), true
}

// Class returns the class with the given name.
func (d *Document) Class(name string) (*Class, bool) {
	el, ok := d.Lookup(KindClass, name)
	if !ok {
		return nil, false
	}
	return el.(*Class), true
}

// Entity returns the ER entity with the given name.
func (d *Document) Entity(name string) (*Entity, bool) {
	el, ok := d.Lookup(KindEntity, name)
	if !ok {
		return nil, false
	}
	return el.(*Entity), true
}

// Task returns the gantt task with the given id.
func (d *Document) Task(id string) (*Task, bool) {
	el, ok := d.Lookup(KindTask, id)
	if !ok {
		return nil, false
	}
	return el.(*Task), true
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (*Section, bool) {
	el, ok := d.Lookup(KindSection, id)
	if !ok {
		return nil, false
	}
	return el.(*Section), true
}

// SectionByName returns the first section with the given name.
func (d *Document) SectionByName(name string) (*Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// nextID returns the first "<prefix><n>" id not yet used within kind.
func (d *Document) nextID(kind Kind, prefix string, n int) string {
	for {
		n++
		id := fmt.Sprintf("%s%d", prefix, n)
		if !d.Has(kind, id) {
			return id
		}
	}
}

// nextSeq returns the next message/note sequence number.
func (d *Document) nextSeq() int {
	d.seq++
	return d.seq
}

func (d *Document) checkNew(kind Kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s: empty id", kind)
	}
	if d.Has(kind, id) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrDuplicateID)
	}
	return nil
}

// AddNode appends a flowchart node. Shape defaults to rect.
func (d *Document) AddNode(n *Node) error {
	if err := d.checkNew(KindNode, n.ID); err != nil {
		return err
	}
	if n.Shape == "" {
		n.Shape = ShapeRect
	}
	d.Nodes = append(d.Nodes, n)
	d.put(n)
	return nil
}

// AddEdge appends a flowchart edge, assigning an id when empty.
func (d *Document) AddEdge(e *Edge) error {
	if e.ID == "" {
		e.ID = d.nextID(KindEdge, "edge", len(d.Edges))
	}
	if err := d.checkNew(KindEdge, e.ID); err != nil {
		return err
	}
	if e.Style == "" {
		e.Style = EdgeArrow
	}
	d.Edges = append(d.Edges, e)
	d.put(e)
	return nil
}

// AddActor appends a sequence participant.
func (d *Document) AddActor(a *Actor) error {
	if err := d.checkNew(KindActor, a.ID); err != nil {
		return err
	}
	d.Actors = append(d.Actors, a)
	d.put(a)
	return nil
}

// AddMessage appends a sequence message, assigning id and sequence number.
func (d *Document) AddMessage(m *Message) error {
	if m.ID == "" {
		m.ID = d.nextID(KindMessage, "msg", len(d.Messages))
	}
	if err := d.checkNew(KindMessage, m.ID); err != nil {
		return err
	}
	if m.Arrow == "" {
		m.Arrow = ArrowSync
	}
	if m.Seq == 0 {
		m.Seq = d.nextSeq()
	} else {
		d.seq = max(d.seq, m.Seq)
	}
	d.Messages = append(d.Messages, m)
	d.put(m)
	return nil
}

// AddNote appends a sequence note, assigning id and sequence number.
func (d *Document) AddNote(n *Note) error {
	if n.ID == "" {
		n.ID = d.nextID(KindNote, "note", len(d.Notes))
	}
	if err := d.checkNew(KindNote, n.ID); err != nil {
		return err
	}
	if n.Placement == "" {
		n.Placement = PlacementRight
	}
	if n.Seq == 0 {
		n.Seq = d.nextSeq()
	} else {
		d.seq = max(d.seq, n.Seq)
	}
	d.Notes = append(d.Notes, n)
	d.put(n)
	return nil
}

// AddClass appends a class.
func (d *Document) AddClass(c *Class) error {
	if err := d.checkNew(KindClass, c.Name); err != nil {
		return err
	}
	d.Classes = append(d.Classes, c)
	d.put(c)
	return nil
}

// AddRelation appends a class relation, assigning an id when empty.
func (d *Document) AddRelation(r *Relation) error {
	if r.ID == "" {
		r.ID = d.nextID(KindRelation, "rel", len(d.Relations))
	}
	if err := d.checkNew(KindRelation, r.ID); err != nil {
		return err
	}
	if r.Type == "" {
		r.Type = RelAssociation
	}
	d.Relations = append(d.Relations, r)
	d.put(r)
	return nil
}

// AddEntity appends an ER entity.
func (d *Document) AddEntity(e *Entity) error {
	if err := d.checkNew(KindEntity, e.Name); err != nil {
		return err
	}
	d.Entities = append(d.Entities, e)
	d.put(e)
	return nil
}

// AddERRelation appends an ER relation, assigning an id when empty.
func (d *Document) AddERRelation(r *ERRelation) error {
	if r.ID == "" {
		r.ID = d.nextID(KindERRelation, "errel", len(d.ERRelations))
	}
	if err := d.checkNew(KindERRelation, r.ID); err != nil {
		return err
	}
	if r.Cardinality == "" {
		r.Cardinality = DefaultCardinality
	}
	d.ERRelations = append(d.ERRelations, r)
	d.put(r)
	return nil
}

// AddSection appends a gantt or journey section, assigning an id when empty.
func (d *Document) AddSection(s *Section) error {
	if s.ID == "" {
		s.ID = d.nextID(KindSection, "section", len(d.Sections))
	}
	if err := d.checkNew(KindSection, s.ID); err != nil {
		return err
	}
	d.Sections = append(d.Sections, s)
	d.put(s)
	return nil
}

// AddTask appends a gantt task, assigning an id when empty.
func (d *Document) AddTask(t *Task) error {
	if t.ID == "" {
		t.ID = d.nextID(KindTask, "task", len(d.Tasks))
	}
	if err := d.checkNew(KindTask, t.ID); err != nil {
		return err
	}
	d.Tasks = append(d.Tasks, t)
	d.put(t)
	return nil
}

// AddStep appends a journey step, assigning an id when empty.
func (d *Document) AddStep(s *Step) error {
	if s.ID == "" {
		s.ID = d.nextID(KindStep, "step", len(d.Steps))
	}
	if err := d.checkNew(KindStep, s.ID); err != nil {
		return err
	}
	d.Steps = append(d.Steps, s)
	d.put(s)
	return nil
}

// Remove deletes the element of the given kind and id. References to it are
// left in place; generators skip them until they are repaired.
func (d *Document) Remove(kind Kind, id string) bool {
	if !d.Has(kind, id) {
		return false
	}
	delete(d.index[kind], id)
	switch kind {
	case KindNode:
		d.Nodes = removeByID(d.Nodes, id)
	case KindEdge:
		d.Edges = removeByID(d.Edges, id)
	case KindActor:
		d.Actors = removeByID(d.Actors, id)
	case KindMessage:
		d.Messages = removeByID(d.Messages, id)
	case KindNote:
		d.Notes = removeByID(d.Notes, id)
	case KindClass:
		d.Classes = removeByID(d.Classes, id)
	case KindRelation:
		d.Relations = removeByID(d.Relations, id)
	case KindEntity:
		d.Entities = removeByID(d.Entities, id)
	case KindERRelation:
		d.ERRelations = removeByID(d.ERRelations, id)
	case KindSection:
		d.Sections = removeByID(d.Sections, id)
	case KindTask:
		d.Tasks = removeByID(d.Tasks, id)
	case KindStep:
		d.Steps = removeByID(d.Steps, id)
	}
	return true
}

func removeByID[T Element](list []T, id string) []T {
	return slices.DeleteFunc(list, func(el T) bool { return el.ElementID() == id })
}

// Elements lists every element in kind order, each kind in insertion order.
func (d *Document) Elements() []Element {
	out := make([]Element, 0, d.Len())
	out = appendElements(out, d.Nodes)
	out = appendElements(out, d.Edges)
	out = appendElements(out, d.Actors)
	out = appendElements(out, d.Messages)
	out = appendElements(out, d.Notes)
	out = appendElements(out, d.Classes)
	out = appendElements(out, d.Relations)
	out = appendElements(out, d.Entities)
	out = appendElements(out, d.ERRelations)
	out = appendElements(out, d.Sections)
	out = appendElements(out, d.Tasks)
	out = appendElements(out, d.Steps)
	return out
}

func appendElements[T Element](out []Element, list []T) []Element {
	for _, el := range list {
		out = append(out, el)
	}
	return out
}

// Len returns the total number of elements.
func (d *Document) Len() int {
	return len(d.Nodes) + len(d.Edges) + len(d.Actors) + len(d.Messages) +
		len(d.Notes) + len(d.Classes) + len(d.Relations) + len(d.Entities) +
		len(d.ERRelations) + len(d.Sections) + len(d.Tasks) + len(d.Steps)
}

// IsEmpty reports whether the document holds no entity relevant to its type.
func (d *Document) IsEmpty() bool {
	switch d.Type {
	case TypeSequence:
		return len(d.Actors) == 0 && len(d.Messages) == 0 && len(d.Notes) == 0
	case TypeClass:
		return len(d.Classes) == 0 && len(d.Relations) == 0
	case TypeER:
		return len(d.Entities) == 0
	case TypeGantt:
		return len(d.Tasks) == 0 && len(d.Sections) == 0
	case TypeJourney:
		return len(d.Steps) == 0 && len(d.Sections) == 0
	default:
		return len(d.Nodes) == 0 && len(d.Edges) == 0
	}
}

// UnmarshalJSON decodes a document and rebuilds its index.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)
	d.Reindex()
	return nil
}

// Clone returns a deep copy with its own index.
func (d *Document) Clone() *Document {
	c := &Document{
		Type:       d.Type,
		Direction:  d.Direction,
		Title:      d.Title,
		DateFormat: d.DateFormat,
		AxisFormat: d.AxisFormat,
	}
	for _, n := range d.Nodes {
		cp := *n
		c.Nodes = append(c.Nodes, &cp)
	}
	for _, e := range d.Edges {
		cp := *e
		c.Edges = append(c.Edges, &cp)
	}
	for _, a := range d.Actors {
		cp := *a
		c.Actors = append(c.Actors, &cp)
	}
	for _, m := range d.Messages {
		cp := *m
		c.Messages = append(c.Messages, &cp)
	}
	for _, n := range d.Notes {
		cp := *n
		c.Notes = append(c.Notes, &cp)
	}
	for _, cl := range d.Classes {
		cp := *cl
		cp.Attributes = slices.Clone(cl.Attributes)
		cp.Methods = slices.Clone(cl.Methods)
		c.Classes = append(c.Classes, &cp)
	}
	for _, r := range d.Relations {
		cp := *r
		c.Relations = append(c.Relations, &cp)
	}
	for _, e := range d.Entities {
		cp := *e
		cp.Attributes = make([]Attribute, len(e.Attributes))
		for i, a := range e.Attributes {
			a.Keys = slices.Clone(a.Keys)
			cp.Attributes[i] = a
		}
		if e.Attributes == nil {
			cp.Attributes = nil
		}
		c.Entities = append(c.Entities, &cp)
	}
	for _, r := range d.ERRelations {
		cp := *r
		c.ERRelations = append(c.ERRelations, &cp)
	}
	for _, s := range d.Sections {
		cp := *s
		c.Sections = append(c.Sections, &cp)
	}
	for _, t := range d.Tasks {
		cp := *t
		cp.Tags = slices.Clone(t.Tags)
		cp.After = slices.Clone(t.After)
		c.Tasks = append(c.Tasks, &cp)
	}
	for _, s := range d.Steps {
		cp := *s
		cp.Actors = slices.Clone(s.Actors)
		c.Steps = append(c.Steps, &cp)
	}
	c.Reindex()
	return c
}
