package diagram

import "math"

// Type identifies one of the supported diagram grammars.
type Type string

const (
	TypeFlowchart Type = "flowchart"
	TypeSequence  Type = "sequenceDiagram"
	TypeClass     Type = "classDiagram"
	TypeER        Type = "erDiagram"
	TypeGantt     Type = "gantt"
	TypeJourney   Type = "journey"
)

// Types lists every supported diagram type.
var Types = []Type{TypeFlowchart, TypeSequence, TypeClass, TypeER, TypeGantt, TypeJourney}

// Valid reports whether t is a supported diagram type.
func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Kind discriminates the element variants stored in a Document.
type Kind string

const (
	KindNode       Kind = "node"
	KindEdge       Kind = "edge"
	KindActor      Kind = "actor"
	KindMessage    Kind = "message"
	KindNote       Kind = "note"
	KindClass      Kind = "class"
	KindRelation   Kind = "relation"
	KindEntity     Kind = "entity"
	KindERRelation Kind = "er_relation"
	KindTask       Kind = "task"
	KindSection    Kind = "section"
	KindStep       Kind = "step"
)

// Element is implemented by every entity a Document owns.
type Element interface {
	ElementID() string
	Kind() Kind
}

// Bounds is an axis-aligned rectangle in canvas pixels, origin top-left.
// A zero-sized rectangle means the element has no geometry yet.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether b carries no usable geometry.
func (b Bounds) Empty() bool {
	return b.W <= 0 || b.H <= 0 || math.IsNaN(b.X) || math.IsNaN(b.Y)
}

// Area returns W*H.
func (b Bounds) Area() float64 { return b.W * b.H }

// CenterX returns the horizontal center.
func (b Bounds) CenterX() float64 { return b.X + b.W/2 }

// Contains reports whether o lies fully inside b (edges inclusive).
func (b Bounds) Contains(o Bounds) bool {
	return o.X >= b.X && o.Y >= b.Y &&
		o.X+o.W <= b.X+b.W && o.Y+o.H <= b.Y+b.H
}

// StrictlyContains reports whether b contains o and is larger than it.
func (b Bounds) StrictlyContains(o Bounds) bool {
	return b.Contains(o) && b.Area() > o.Area()
}

// Union returns the smallest rectangle covering both b and o.
// An empty operand is ignored.
func (b Bounds) Union(o Bounds) Bounds {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x1, y1 := math.Min(b.X, o.X), math.Min(b.Y, o.Y)
	x2, y2 := math.Max(b.X+b.W, o.X+o.W), math.Max(b.Y+b.H, o.Y+o.H)
	return Bounds{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// --- Flowchart ---

// Shape is the outline of a flowchart node.
type Shape string

const (
	ShapeRect     Shape = "rect"
	ShapeRounded  Shape = "rounded"
	ShapeCircle   Shape = "circle"
	ShapeDiamond  Shape = "diamond"
	ShapeSubgraph Shape = "subgraph"
)

// Direction is the flowchart layout direction.
type Direction string

const (
	DirectionTD Direction = "TD"
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
)

// Node is a flowchart vertex. A node with ShapeSubgraph is a container.
type Node struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Shape       Shape  `json:"shape"`
	ContainerID string `json:"container_id,omitempty"`
	Bounds      Bounds `json:"bounds"`
}

func (n *Node) ElementID() string { return n.ID }
func (n *Node) Kind() Kind        { return KindNode }

// IsSubgraph reports whether the node is a subgraph container.
func (n *Node) IsSubgraph() bool { return n.Shape == ShapeSubgraph }

// EdgeKind is the arrow style of a flowchart edge.
type EdgeKind string

const (
	EdgeArrow         EdgeKind = "-->"
	EdgeOpen          EdgeKind = "---"
	EdgeBidirectional EdgeKind = "<-->"
	EdgeDotted        EdgeKind = "-.->"
	EdgeThick         EdgeKind = "==>"
)

// Edge connects two flowchart nodes. Multi-edges and self-loops are allowed.
type Edge struct {
	ID    string   `json:"id"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Style EdgeKind `json:"style"`
	Label string   `json:"label,omitempty"`
}

func (e *Edge) ElementID() string { return e.ID }
func (e *Edge) Kind() Kind        { return KindEdge }

// --- Sequence ---

// Actor is a sequence diagram participant.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Bounds      Bounds `json:"bounds"`
}

func (a *Actor) ElementID() string { return a.ID }
func (a *Actor) Kind() Kind        { return KindActor }

// Label returns the display name, or the id when none is set.
func (a *Actor) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID
}

// Arrow is a sequence message arrow.
type Arrow string

const (
	ArrowSync       Arrow = "->>"
	ArrowReply      Arrow = "-->>"
	ArrowSolid      Arrow = "->"
	ArrowDotted     Arrow = "-->"
	ArrowAsync      Arrow = "-)"
	ArrowAsyncReply Arrow = "--)"
	ArrowLost       Arrow = "-x"
	ArrowLostReply  Arrow = "--x"
)

// Message is one exchange between two actors. Seq breaks ties between
// messages and notes at the same vertical position.
type Message struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Text   string `json:"text"`
	Arrow  Arrow  `json:"arrow"`
	Seq    int    `json:"seq"`
	Bounds Bounds `json:"bounds"`
}

func (m *Message) ElementID() string { return m.ID }
func (m *Message) Kind() Kind        { return KindMessage }

// Placement positions a note relative to its actor.
type Placement string

const (
	PlacementLeft  Placement = "left of"
	PlacementRight Placement = "right of"
	PlacementOver  Placement = "over"
)

// Note is a sequence annotation attached to an actor.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	ActorID   string    `json:"actor_id"`
	Placement Placement `json:"placement"`
	Seq       int       `json:"seq"`
	Bounds    Bounds    `json:"bounds"`
}

func (n *Note) ElementID() string { return n.ID }
func (n *Note) Kind() Kind        { return KindNote }

// --- Class ---

// Class is a class diagram entity keyed by name.
type Class struct {
	Name       string   `json:"name"`
	Stereotype string   `json:"stereotype,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Bounds     Bounds   `json:"bounds"`
}

func (c *Class) ElementID() string { return c.Name }
func (c *Class) Kind() Kind        { return KindClass }

// HasBody reports whether the class needs a block declaration.
func (c *Class) HasBody() bool {
	return c.Stereotype != "" || len(c.Attributes) > 0 || len(c.Methods) > 0
}

// RelationKind is a class diagram relation arrow token.
type RelationKind string

const (
	RelInheritance      RelationKind = "<|--"
	RelInheritanceRight RelationKind = "--|>"
	RelComposition      RelationKind = "*--"
	RelCompositionRight RelationKind = "--*"
	RelAggregation      RelationKind = "o--"
	RelAggregationRight RelationKind = "--o"
	RelAssociation      RelationKind = "-->"
	RelAssociationLeft  RelationKind = "<--"
	RelLink             RelationKind = "--"
	RelDependency       RelationKind = "..>"
	RelDependencyLeft   RelationKind = "<.."
	RelRealization      RelationKind = "..|>"
	RelRealizationLeft  RelationKind = "<|.."
	RelDashedLink       RelationKind = ".."
)

// RelationKinds lists every class relation token, longest first, the order
// in which they must be matched.
var RelationKinds = []RelationKind{
	RelRealization, RelRealizationLeft, RelInheritance, RelInheritanceRight,
	RelComposition, RelCompositionRight, RelAggregation, RelAggregationRight,
	RelAssociation, RelAssociationLeft, RelDependency, RelDependencyLeft,
	RelLink, RelDashedLink,
}

// RelationCategory is the semantic family of a relation kind.
type RelationCategory string

const (
	CategoryInheritance RelationCategory = "inheritance"
	CategoryComposition RelationCategory = "composition"
	CategoryAggregation RelationCategory = "aggregation"
	CategoryAssociation RelationCategory = "association"
	CategoryDependency  RelationCategory = "dependency"
	CategoryRealization RelationCategory = "realization"
	CategoryLink        RelationCategory = "link"
)

// Category maps the arrow token to its semantic family.
func (k RelationKind) Category() RelationCategory {
	switch k {
	case RelInheritance, RelInheritanceRight:
		return CategoryInheritance
	case RelComposition, RelCompositionRight:
		return CategoryComposition
	case RelAggregation, RelAggregationRight:
		return CategoryAggregation
	case RelAssociation, RelAssociationLeft:
		return CategoryAssociation
	case RelDependency, RelDependencyLeft:
		return CategoryDependency
	case RelRealization, RelRealizationLeft:
		return CategoryRealization
	default:
		return CategoryLink
	}
}

// Relation connects two classes by name.
type Relation struct {
	ID    string       `json:"id"`
	From  string       `json:"from"`
	To    string       `json:"to"`
	Type  RelationKind `json:"type"`
	Label string       `json:"label,omitempty"`
}

func (r *Relation) ElementID() string { return r.ID }
func (r *Relation) Kind() Kind        { return KindRelation }

// --- ER ---

// KeyRole marks an attribute as part of a key.
type KeyRole string

const (
	KeyNone    KeyRole = ""
	KeyPrimary KeyRole = "PK"
	KeyForeign KeyRole = "FK"
	KeyUnique  KeyRole = "UK"
)

// Attribute is one ER entity column.
type Attribute struct {
	Type    string    `json:"type"`
	Name    string    `json:"name"`
	Keys    []KeyRole `json:"keys,omitempty"`
	Comment string    `json:"comment,omitempty"`
}

// Entity is an ER table keyed by name.
type Entity struct {
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Bounds     Bounds      `json:"bounds"`
}

func (e *Entity) ElementID() string { return e.Name }
func (e *Entity) Kind() Kind        { return KindEntity }

// DefaultCardinality is used when an ER relation carries none.
const DefaultCardinality = "||--o{"

// ERRelation connects two entities with a crow's-foot cardinality token.
type ERRelation struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Cardinality string `json:"cardinality"`
	Label       string `json:"label,omitempty"`
}

func (r *ERRelation) ElementID() string { return r.ID }
func (r *ERRelation) Kind() Kind        { return KindERRelation }

// --- Gantt / Journey ---

// Section is a named header grouping gantt tasks or journey steps.
type Section struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Bounds Bounds `json:"bounds"`
}

func (s *Section) ElementID() string { return s.ID }
func (s *Section) Kind() Kind        { return KindSection }

// Task is a gantt bar or milestone. Milestones use Start as their fixed
// date and have zero duration.
type Task struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Start     string   `json:"start,omitempty"`
	Duration  string   `json:"duration,omitempty"`
	Milestone bool     `json:"milestone,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	After     []string `json:"after,omitempty"`
	Section   string   `json:"section,omitempty"`
	Bounds    Bounds   `json:"bounds"`
}

func (t *Task) ElementID() string { return t.ID }
func (t *Task) Kind() Kind        { return KindTask }

// Step is one journey stage step.
type Step struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	Actors  []string `json:"actors,omitempty"`
	Section string   `json:"section,omitempty"`
	Bounds  Bounds   `json:"bounds"`
}

func (s *Step) ElementID() string { return s.ID }
func (s *Step) Kind() Kind        { return KindStep }
