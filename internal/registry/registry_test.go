package registry

import (
	"sync"
	"testing"
)

func TestSetAndLookup(t *testing.T) {
	r := New()
	if _, ok := r.Lookup("/echo/1.0"); ok {
		t.Fatal("expected miss on empty registry")
	}

	called := false
	r.Set("/echo/1.0", func(info StreamInfo, s Stream) { called = true })

	h, ok := r.Lookup("/echo/1.0")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	h(StreamInfo{}, nil)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestLastWriterWins(t *testing.T) {
	r := New()
	var calls []int
	r.Set("/x/1.0", func(info StreamInfo, s Stream) { calls = append(calls, 1) })
	r.Set("/x/1.0", func(info StreamInfo, s Stream) { calls = append(calls, 2) })

	h, _ := r.Lookup("/x/1.0")
	h(StreamInfo{}, nil)
	if len(calls) != 1 || calls[0] != 2 {
		t.Fatalf("expected only the second handler to run, got %v", calls)
	}
}

func TestConcurrentRegistrationsDistinctProtocols(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	protos := []string{"/a", "/b", "/c", "/d"}
	for _, p := range protos {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Set(p, func(info StreamInfo, s Stream) {})
		}()
	}
	wg.Wait()

	for _, p := range protos {
		if _, ok := r.Lookup(p); !ok {
			t.Fatalf("expected %q to be registered", p)
		}
	}
}

func TestProtocols(t *testing.T) {
	r := New()
	r.Set("/a", func(info StreamInfo, s Stream) {})
	r.Set("/b", func(info StreamInfo, s Stream) {})
	got := r.Protocols()
	if len(got) != 2 {
		t.Fatalf("expected 2 protocols, got %v", got)
	}
}
