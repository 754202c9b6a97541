package queue

import (
	"testing"

	"github.com/datasniffing/caramelo/pkg/models"
)

func TestNewFrontier(t *testing.T) {
	f := NewFrontier()
	if f.Len() != 0 {
		t.Errorf("New frontier Len() = %d, want 0", f.Len())
	}
	if _, ok := f.Pop(); ok {
		t.Error("Pop() on empty frontier returned ok=true")
	}
}

func TestFrontier_FIFOWithinDepth(t *testing.T) {
	f := NewFrontier()
	urls := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3", "https://a.example/4"}
	for _, u := range urls {
		f.Push(models.WorkItem{URL: u, Depth: 1})
	}

	for i, want := range urls {
		got, ok := f.Pop()
		if !ok {
			t.Fatalf("Pop() #%d returned ok=false", i)
		}
		if got.URL != want {
			t.Errorf("Pop() #%d URL = %q, want %q", i, got.URL, want)
		}
	}
}

func TestFrontier_ShallowFirst(t *testing.T) {
	f := NewFrontier()
	f.Push(models.WorkItem{URL: "deep", Depth: 2})
	f.Push(models.WorkItem{URL: "seed", Depth: 0})
	f.Push(models.WorkItem{URL: "child-a", Depth: 1})
	f.Push(models.WorkItem{URL: "child-b", Depth: 1})

	want := []string{"seed", "child-a", "child-b", "deep"}
	for i, w := range want {
		got, _ := f.Pop()
		if got.URL != w {
			t.Errorf("Pop() #%d URL = %q, want %q", i, got.URL, w)
		}
	}
	if f.Len() != 0 {
		t.Errorf("Len() after draining = %d, want 0", f.Len())
	}
}

func TestFrontier_InterleavedPushPop(t *testing.T) {
	f := NewFrontier()
	f.Push(models.WorkItem{URL: "seed", Depth: 0})

	got, _ := f.Pop()
	if got.URL != "seed" {
		t.Fatalf("first Pop() = %q, want seed", got.URL)
	}
	f.Push(models.WorkItem{URL: "a", Depth: 1})
	f.Push(models.WorkItem{URL: "b", Depth: 1})

	got, _ = f.Pop()
	f.Push(models.WorkItem{URL: "a/child", Depth: 2})
	if got.URL != "a" {
		t.Errorf("second Pop() = %q, want a", got.URL)
	}
	got, _ = f.Pop()
	if got.URL != "b" {
		t.Errorf("third Pop() = %q, want b", got.URL)
	}
	got, _ = f.Pop()
	if got.URL != "a/child" {
		t.Errorf("fourth Pop() = %q, want a/child", got.URL)
	}
}
