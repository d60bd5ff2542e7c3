package capture

import "testing"

func TestMetadataRegistryStoreLookup(t *testing.T) {
	r := NewMetadataRegistry()

	meta := Metadata{
		Expression: "customer.Orders",
		FilePath:   "/src/app.cs",
		Label:      "customer_Orders",
		Line:       41,
	}
	r.Store("customer_Orders-1a2b3c4d.json", meta)

	got, ok := r.Lookup("customer_Orders-1a2b3c4d.json")
	if !ok {
		t.Fatal("expected a recorded entry")
	}
	if got.Expression != meta.Expression || got.Line != meta.Line {
		t.Errorf("got %+v, want %+v", got, meta)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Store must stamp CreatedAt")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestMetadataRegistryReconstructs(t *testing.T) {
	r := NewMetadataRegistry()

	got, ok := r.Lookup("order-9f8e7d6c.json")
	if ok {
		t.Fatal("lookup miss must report false")
	}
	if got.Label != "order" || got.Expression != "order" {
		t.Errorf("reconstructed %+v, want label and expression %q", got, "order")
	}
	if got.Line != -1 {
		t.Errorf("reconstructed line = %d, want -1", got.Line)
	}
}

func TestMetadataRegistryForget(t *testing.T) {
	r := NewMetadataRegistry()

	r.Store("x-1.json", Metadata{Expression: "x"})
	r.Forget("x-1.json")

	if _, ok := r.Lookup("x-1.json"); ok {
		t.Error("forgotten artifact must miss")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}
