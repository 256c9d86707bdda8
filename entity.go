package slicer

import (
	"fmt"
	"strings"
)

// EntityKind is the kind of a declared program element.
type EntityKind string

const (
	KindClass             EntityKind = "CLASS"
	KindInterface         EntityKind = "INTERFACE"
	KindEnum              EntityKind = "ENUM"
	KindAnnotation        EntityKind = "ANNOTATION"
	KindAnnotationElement EntityKind = "ANNOTATION_ELEMENT"
	KindField             EntityKind = "FIELD"
	KindEnumConstant      EntityKind = "ENUM_CONSTANT"
	KindInitializer       EntityKind = "INITIALIZER"
	KindConstructor       EntityKind = "CONSTRUCTOR"
	KindMethod            EntityKind = "METHOD"
	KindParameter         EntityKind = "PARAMETER"
	KindLocalVariable     EntityKind = "LOCAL_VARIABLE"
	KindPackage           EntityKind = "PACKAGE"
	KindPrimitive         EntityKind = "PRIMITIVE"
	KindArray             EntityKind = "ARRAY"
	KindTypeVariable      EntityKind = "TYPE_VARIABLE"
	KindWildcard          EntityKind = "WILDCARD"
	KindParameterizedType EntityKind = "PARAMETERIZED_TYPE"
	KindDuplicate         EntityKind = "DUPLICATE"
	KindUnknown           EntityKind = "UNKNOWN"
)

var entityKinds = []EntityKind{
	KindClass, KindInterface, KindEnum, KindAnnotation, KindAnnotationElement,
	KindField, KindEnumConstant, KindInitializer, KindConstructor, KindMethod,
	KindParameter, KindLocalVariable, KindPackage, KindPrimitive, KindArray,
	KindTypeVariable, KindWildcard, KindParameterizedType, KindDuplicate, KindUnknown,
}

// ParseEntityKind validates a kind name as stored in the fact store.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range entityKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// IsDeclaredType reports whether k is a class, interface or enum.
func (k EntityKind) IsDeclaredType() bool {
	return k == KindClass || k == KindInterface || k == KindEnum
}

// Sliceable reports whether entities of kind k can be grouped into a
// reconstructed file. Constructors are admitted to a slice but never
// rendered.
func (k EntityKind) Sliceable() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindField, KindEnumConstant,
		KindInitializer, KindMethod:
		return true
	}
	return false
}

// Keyword returns the Java declaration keyword of a declared type kind.
func (k EntityKind) Keyword() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindAnnotation:
		return "@interface"
	}
	return strings.ToLower(string(k))
}

// RelationType is the kind of a directed edge between two entities.
type RelationType string

const (
	RelContains   RelationType = "CONTAINS"
	RelUses       RelationType = "USES"
	RelCalls      RelationType = "CALLS"
	RelExtends    RelationType = "EXTENDS"
	RelImplements RelationType = "IMPLEMENTS"
)

var relationTypes = []RelationType{RelContains, RelUses, RelCalls, RelExtends, RelImplements}

// ParseRelationType validates a relation type name.
func ParseRelationType(s string) (RelationType, error) {
	r := RelationType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range relationTypes {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown relation type %q", s)
}

// Entity is one declared program element of the corpus. Entities are
// immutable once fetched.
type Entity struct {
	ID        int64      `json:"id"`
	Kind      EntityKind `json:"kind"`
	FQN       string     `json:"fqn"`
	Modifiers []string   `json:"modifiers,omitempty"`
	ProjectID int64      `json:"project_id"`
	FileID    *int64     `json:"file_id,omitempty"`
	Offset    *int       `json:"offset,omitempty"`
	Length    *int       `json:"length,omitempty"`
}

// SimpleName returns the FQN's last segment, with any enclosing type
// prefix ("Outer$Inner") removed.
func (e *Entity) SimpleName() string {
	name := e.FQN
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Span returns the entity's [start, end) byte range in its file.
func (e *Entity) Span() (start, end int, ok bool) {
	if e.Offset == nil || e.Length == nil {
		return 0, 0, false
	}
	return *e.Offset, *e.Offset + *e.Length, true
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s %s (%d)", e.Kind, e.FQN, e.ID)
}

// Import is one import statement of a file. The statement text is the
// file content in [Offset, Offset+Length).
type Import struct {
	Static   bool  `json:"static"`
	OnDemand bool  `json:"on_demand"`
	EntityID int64 `json:"entity_id"`
	Offset   int   `json:"offset"`
	Length   int   `json:"length"`
}

// ModeledType is the resolved supertype node of one declared type. A zero
// Superclass means no superclass was recorded, which is how the corpus
// models java.lang.Object.
type ModeledType struct {
	EntityID        int64   `json:"entity_id"`
	Superclass      int64   `json:"superclass,omitempty"`
	SuperInterfaces []int64 `json:"super_interfaces,omitempty"`
}

// IsRoot reports whether the type has no recorded superclass.
func (t *ModeledType) IsRoot() bool {
	return t.Superclass == 0
}
