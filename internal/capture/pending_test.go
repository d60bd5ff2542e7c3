package capture

import "testing"

func TestPendingStoreLastWriteWins(t *testing.T) {
	var store PendingStore

	store.Persist(PendingRequest{Path: "/src/a.js", Text: "first"})
	store.Persist(PendingRequest{Path: "/src/b.js", Text: "second"})

	req, ok := store.Get()
	if !ok {
		t.Fatal("expected a pending request")
	}
	if req.Text != "second" {
		t.Errorf("text = %q, want the later request", req.Text)
	}
	if store.Matches("/src/a.js") {
		t.Error("slot must not still match the overwritten request")
	}
}

func TestPendingStoreClear(t *testing.T) {
	var store PendingStore

	store.Persist(PendingRequest{Path: "/src/a.js", Text: "x"})
	store.Clear()

	if _, ok := store.Get(); ok {
		t.Error("slot must be empty after Clear")
	}
	if store.Matches("/src/a.js") {
		t.Error("cleared slot must not match")
	}
}

func TestPendingStoreMatchNormalizesPath(t *testing.T) {
	var store PendingStore

	store.Persist(PendingRequest{Path: "/src/./a.js", Text: "x"})

	req, ok := store.Match("/src/a.js")
	if !ok {
		t.Fatal("equivalent paths must match")
	}
	if req.Text != "x" {
		t.Errorf("text = %q, want %q", req.Text, "x")
	}
	if _, ok := store.Match("/src/other.js"); ok {
		t.Error("different path must not match")
	}
}

func TestPendingStoreStampsCreatedAt(t *testing.T) {
	var store PendingStore

	store.Persist(PendingRequest{Path: "/src/a.js"})

	req, _ := store.Get()
	if req.CreatedAt.IsZero() {
		t.Error("Persist must stamp CreatedAt")
	}
}

func TestPendingStoreEmpty(t *testing.T) {
	var store PendingStore

	if _, ok := store.Get(); ok {
		t.Error("zero-value store must be empty")
	}
	if _, ok := store.Match("/src/a.js"); ok {
		t.Error("zero-value store must not match")
	}
}
