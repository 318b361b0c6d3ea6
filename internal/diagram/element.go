package diagram

import (
	"encoding/json"
	"fmt"
)

// Kinds lists every element kind in document order.
var Kinds = []Kind{
	KindNode, KindEdge, KindActor, KindMessage, KindNote, KindClass,
	KindRelation, KindEntity, KindERRelation, KindSection, KindTask, KindStep,
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// NewElement returns an empty element of the given kind.
func NewElement(kind Kind) (Element, error) {
	switch kind {
	case KindNode:
		return &Node{}, nil
	case KindEdge:
		return &Edge{}, nil
	case KindActor:
		return &Actor{}, nil
	case KindMessage:
		return &Message{}, nil
	case KindNote:
		return &Note{}, nil
	case KindClass:
		return &Class{}, nil
	case KindRelation:
		return &Relation{}, nil
	case KindEntity:
		return &Entity{}, nil
	case KindERRelation:
		return &ERRelation{}, nil
	case KindSection:
		return &Section{}, nil
	case KindTask:
		return &Task{}, nil
	case KindStep:
		return &Step{}, nil
	}
	return nil, fmt.Errorf("unknown element kind %q", kind)
}

// DecodeElement decodes the JSON form of an element of the given kind.
func DecodeElement(kind Kind, data []byte) (Element, error) {
	el, err := NewElement(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, el); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return el, nil
}

// Add inserts el through the Add method of its kind, applying the same
// defaults and id generation.
func (d *Document) Add(el Element) error {
	switch v := el.(type) {
	case *Node:
		return d.AddNode(v)
	case *Edge:
		return d.AddEdge(v)
	case *Actor:
		return d.AddActor(v)
	case *Message:
		return d.AddMessage(v)
	case *Note:
		return d.AddNote(v)
	case *Class:
		return d.AddClass(v)
	case *Relation:
		return d.AddRelation(v)
	case *Entity:
		return d.AddEntity(v)
	case *ERRelation:
		return d.AddERRelation(v)
	case *Section:
		return d.AddSection(v)
	case *Task:
		return d.AddTask(v)
	case *Step:
		return d.AddStep(v)
	}
	return fmt.Errorf("unsupported element %T", el)
}
