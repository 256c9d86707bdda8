package store

// Project kinds. Entities of library projects are the targets of
// library-entity lookups by FQN.
const (
	ProjectKindSource  = "source"
	ProjectKindLibrary = "library"
)

type Project struct {
	ID   int64
	Name string
	Kind string
}

type File struct {
	ID        int64
	ProjectID int64
	Path      string
	Hash      string
}

// Entity is one row of the entities table. FileID, Offset and Length are
// nil for entities without a source location (library binaries).
type Entity struct {
	ID        int64
	Kind      string
	FQN       string
	Modifiers []string
	ProjectID int64
	FileID    *int64
	Offset    *int
	Length    *int
}

// Relation is a typed directed edge from SourceID to TargetID.
type Relation struct {
	ID        int64
	Kind      string
	SourceID  int64
	TargetID  int64
	ProjectID *int64
	FileID    *int64
}

// Import is one import statement of a file, pointing at the imported entity.
type Import struct {
	ID       int64
	FileID   int64
	Static   bool
	OnDemand bool
	EntityID int64
	Offset   int
	Length   int
}

// FactSet is a complete batch of facts loaded in one transaction.
type FactSet struct {
	Projects  []Project
	Files     []File
	Entities  []Entity
	Relations []Relation
	Imports   []Import
}

// Stats counts the rows of each fact table.
type Stats struct {
	Projects  int `json:"projects"`
	Files     int `json:"files"`
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
	Imports   int `json:"imports"`
}
