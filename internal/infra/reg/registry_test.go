package reg

import "testing"

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	r, err := New(2)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	r.Remember(1, "Alice")
	r.Remember(2, "")

	if id, ok := r.Lookup("@alice"); !ok || id != 1 {
		t.Fatalf("lookup alice: id=%d ok=%v", id, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("empty usernames must be ignored, len=%d", r.Len())
	}
}

func TestRegistryEvictsLeastRecentlySeen(t *testing.T) {
	t.Parallel()

	r, err := New(2)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	r.Remember(1, "a")
	r.Remember(2, "b")
	r.Lookup("a")
	r.Remember(3, "c")

	if _, ok := r.Lookup("b"); ok {
		t.Fatalf("b must be evicted")
	}
	if _, ok := r.Lookup("a"); !ok {
		t.Fatalf("a must survive")
	}
}
