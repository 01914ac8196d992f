package memory_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/flora/memory"
)

func TestSessionPrefix(t *testing.T) {
	prefix := memory.SessionPrefix("../user 1")
	if strings.Contains(prefix, "..") || strings.Contains(prefix, " ") {
		t.Errorf("SessionPrefix leaked raw id: %q", prefix)
	}
	if memory.SessionPrefix("a") == memory.SessionPrefix("b") {
		t.Error("distinct sessions share a prefix")
	}
}

func TestFacts_FlushAndReload(t *testing.T) {
	for name, store := range map[string]memory.Store{
		"map":  memory.NewMapStore(),
		"file": memory.NewFileStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			facts, err := memory.LoadFacts(ctx, store, "user123")
			if err != nil {
				t.Fatalf("LoadFacts failed: %v", err)
			}
			if len(facts.All()) != 0 {
				t.Fatal("new session should have no facts")
			}

			facts.Set(memory.FactAddress, "123 Akasya Sokak, Kadıköy")
			if err := facts.Flush(ctx); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}

			reloaded, err := memory.LoadFacts(ctx, store, "user123")
			if err != nil {
				t.Fatalf("LoadFacts failed: %v", err)
			}
			got, ok := reloaded.Get(memory.FactAddress)
			if !ok || got != "123 Akasya Sokak, Kadıköy" {
				t.Errorf("address = %q, %v", got, ok)
			}

			other, err := memory.LoadFacts(ctx, store, "someone-else")
			if err != nil {
				t.Fatalf("LoadFacts failed: %v", err)
			}
			if _, ok := other.Get(memory.FactAddress); ok {
				t.Error("facts leaked across sessions")
			}
		})
	}
}

func TestFacts_FlushWithoutChanges(t *testing.T) {
	facts, err := memory.LoadFacts(context.Background(), memory.NewMapStore(), "s")
	if err != nil {
		t.Fatalf("LoadFacts failed: %v", err)
	}
	if err := facts.Flush(context.Background()); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
}

func TestFacts_AllSorted(t *testing.T) {
	facts, _ := memory.LoadFacts(context.Background(), memory.NewMapStore(), "s")
	facts.Set("zone", "z")
	facts.Set(memory.FactAddress, "a")

	all := facts.All()
	if len(all) != 2 || all[0].Name != memory.FactAddress || all[1].Name != "zone" {
		t.Errorf("All() = %v", all)
	}
}

func TestFacts_Context(t *testing.T) {
	if _, ok := memory.FactsFrom(context.Background()); ok {
		t.Error("empty context should carry no facts")
	}

	facts, _ := memory.LoadFacts(context.Background(), memory.NewMapStore(), "s")
	ctx := memory.WithFacts(context.Background(), facts)

	got, ok := memory.FactsFrom(ctx)
	if !ok || got != facts {
		t.Error("FactsFrom did not return the attached facts")
	}
}

func TestFacts_Concurrent(t *testing.T) {
	facts, _ := memory.LoadFacts(context.Background(), memory.NewMapStore(), "s")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			facts.Set(memory.FactAddress, strings.Repeat("x", i))
			facts.Get(memory.FactAddress)
			facts.All()
		}()
	}
	wg.Wait()
}
