package plugin

import (
	"image"
	"testing"
)

type fakeTransform struct {
	desc Descriptor
}

func (f *fakeTransform) Descriptor() Descriptor { return f.desc }

func (f *fakeTransform) Apply(img image.Image, params map[string]any) (image.Image, error) {
	return img, nil
}

func named(name, category string) *fakeTransform {
	return &fakeTransform{desc: Descriptor{Name: name, DisplayName: name, Category: category}}
}

func TestRegistryDiscoverAndLookup(t *testing.T) {
	reg := NewRegistry(nil)

	n, err := reg.Discover([]Transformation{
		named("blur", "filter"),
		named("resize", "geometry"),
	})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if n != 2 || reg.Len() != 2 {
		t.Fatalf("expected 2 registered, got n=%d len=%d", n, reg.Len())
	}

	if _, ok := reg.Lookup("blur"); !ok {
		t.Fatal("blur not found")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatal("lookup of unknown name must miss")
	}
	if _, ok := reg.Describe("resize"); !ok {
		t.Fatal("describe miss for registered capability")
	}
}

func TestRegistrySkipsInvalidDescriptor(t *testing.T) {
	reg := NewRegistry(nil)

	n, err := reg.Discover([]Transformation{
		named("good", "filter"),
		named("", "filter"), // empty name fails validation
	})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected invalid plugin skipped, got %d registered", n)
	}
}

func TestRegistryCollisionKeepsPriorTable(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Discover([]Transformation{named("blur", "filter")}); err != nil {
		t.Fatalf("initial discover failed: %v", err)
	}

	_, err := reg.Discover([]Transformation{
		named("sharpen", "filter"),
		named("sharpen", "filter"),
	})
	if err == nil {
		t.Fatal("expected collision error")
	}

	// The failed reload must not disturb the prior table.
	if _, ok := reg.Lookup("blur"); !ok {
		t.Fatal("prior table lost after rejected reload")
	}
	if _, ok := reg.Lookup("sharpen"); ok {
		t.Fatal("rejected reload leaked entries")
	}
}

func TestRegistryListOrder(t *testing.T) {
	reg := NewRegistry(nil)
	if _, err := reg.Discover([]Transformation{
		named("c", "one"),
		named("a", "two"),
		named("b", "one"),
	}); err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	list := reg.List()
	wantOrder := []string{"c", "a", "b"}
	for i, want := range wantOrder {
		if list[i].Name != want {
			t.Fatalf("List()[%d] = %q, want %q", i, list[i].Name, want)
		}
	}

	byCat := reg.ListByCategory()
	if len(byCat["one"]) != 2 || len(byCat["two"]) != 1 {
		t.Fatalf("unexpected category grouping: %v", byCat)
	}
	if byCat["one"][0].Name != "c" || byCat["one"][1].Name != "b" {
		t.Fatalf("category order not insertion order: %v", byCat["one"])
	}
}
