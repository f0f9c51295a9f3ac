package graph

import "fmt"

// vocabID constrains the identifier types a Vocabulary can hand out.
type vocabID interface {
	~uint16 | ~uint32
}

// Vocabulary is a bidirectional mapping between names and dense integer
// identifiers. IDs are assigned in insertion order starting at 0, so the
// inverse mapping is a plain slice indexed by ID.
//
// A Vocabulary is mutable only while its Graph is being built; afterwards it
// is shared read-only across all queries and goroutines.
type Vocabulary[ID vocabID] struct {
	ids   map[string]ID
	names []string
}

func NewVocabulary[ID vocabID]() *Vocabulary[ID] {
	return &Vocabulary[ID]{ids: make(map[string]ID)}
}

// Insert returns the ID for name, assigning the next dense ID if the name is
// new. Inserting an existing name is a no-op returning the existing ID.
func (v *Vocabulary[ID]) Insert(name string) ID {
	if id, ok := v.ids[name]; ok {
		return id
	}
	id := ID(len(v.names))
	v.ids[name] = id
	v.names = append(v.names, name)
	return id
}

// InsertUnique is the validated variant of Insert for callers that expect
// every key to be new, e.g. when loading an explicit node list.
func (v *Vocabulary[ID]) InsertUnique(name string) (ID, error) {
	if _, ok := v.ids[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	return v.Insert(name), nil
}

// Get returns the ID for name, and whether it is present.
func (v *Vocabulary[ID]) Get(name string) (ID, bool) {
	id, ok := v.ids[name]
	return id, ok
}

// Name returns the name for id. An out-of-range id is a programmer error and
// panics: once a graph is built, every ID it hands out is valid by
// construction.
func (v *Vocabulary[ID]) Name(id ID) string {
	return v.names[id]
}

func (v *Vocabulary[ID]) Len() int { return len(v.names) }

// clone deep-copies the vocabulary. Transforms that need to extend a shared
// vocabulary (e.g. adding a self-loop edge type) work on a clone so the source
// graph stays immutable.
func (v *Vocabulary[ID]) clone() *Vocabulary[ID] {
	out := &Vocabulary[ID]{
		ids:   make(map[string]ID, len(v.ids)),
		names: append([]string(nil), v.names...),
	}
	for name, id := range v.ids {
		out.ids[name] = id
	}
	return out
}
