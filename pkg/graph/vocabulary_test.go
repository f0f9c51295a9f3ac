package graph

import (
	"errors"
	"testing"
)

func TestVocabularyDenseIDs(t *testing.T) {
	v := NewVocabulary[NodeID]()
	names := []string{"a", "b", "c", "d"}
	for i, name := range names {
		if id := v.Insert(name); id != NodeID(i) {
			t.Fatalf("Insert(%q) = %d, want %d", name, id, i)
		}
	}
	if v.Len() != len(names) {
		t.Fatalf("Len() = %d, want %d", v.Len(), len(names))
	}
	for i, name := range names {
		if got := v.Name(NodeID(i)); got != name {
			t.Errorf("Name(%d) = %q, want %q", i, got, name)
		}
		id, ok := v.Get(name)
		if !ok || id != NodeID(i) {
			t.Errorf("Get(%q) = (%d, %v), want (%d, true)", name, id, ok, i)
		}
	}
}

func TestVocabularyInsertIdempotent(t *testing.T) {
	v := NewVocabulary[NodeID]()
	a := v.Insert("x")
	b := v.Insert("x")
	if a != b {
		t.Fatalf("re-inserting returned a new id: %d vs %d", a, b)
	}
	if v.Len() != 1 {
		t.Fatalf("Len() = %d after duplicate insert, want 1", v.Len())
	}
}

func TestVocabularyInsertUnique(t *testing.T) {
	v := NewVocabulary[EdgeTypeID]()
	if _, err := v.InsertUnique("link"); err != nil {
		t.Fatal(err)
	}
	_, err := v.InsertUnique("link")
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestVocabularyGetMissing(t *testing.T) {
	v := NewVocabulary[NodeID]()
	v.Insert("present")
	if _, ok := v.Get("absent"); ok {
		t.Fatal("Get reported an absent name as present")
	}
}

func TestVocabularyCloneIsIndependent(t *testing.T) {
	v := NewVocabulary[EdgeTypeID]()
	v.Insert("a")
	c := v.clone()
	c.Insert("b")
	if v.Len() != 1 {
		t.Fatalf("insert into clone leaked into the source: Len() = %d", v.Len())
	}
	if c.Len() != 2 {
		t.Fatalf("clone Len() = %d, want 2", c.Len())
	}
}
