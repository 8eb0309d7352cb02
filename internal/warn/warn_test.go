package warn

import (
	"sync"
	"testing"
)

func TestReporterOncePerCode(t *testing.T) {
	rec := &Recorder{}
	r := NewReporter(rec)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Deprecate("DEP0166", "double slash")
			r.Deprecate("DEP0155", "trailing slash")
		}()
	}
	wg.Wait()

	if n := rec.Count("DEP0166"); n != 1 {
		t.Fatalf("DEP0166 emitted %d times, want 1", n)
	}
	if n := rec.Count("DEP0155"); n != 1 {
		t.Fatalf("DEP0155 emitted %d times, want 1", n)
	}
	if rec.Warnings[0].Category != DeprecationWarning {
		t.Fatalf("unexpected category %q", rec.Warnings[0].Category)
	}

	r.Reset()
	r.Deprecate("DEP0166", "double slash")
	if n := rec.Count("DEP0166"); n != 2 {
		t.Fatalf("DEP0166 emitted %d times after reset, want 2", n)
	}
}

func TestNilReporter(t *testing.T) {
	var r *Reporter
	r.Deprecate("DEP0166", "ignored")
	NewReporter(nil).Deprecate("DEP0166", "ignored")
	LogSink{}.Emit("ignored", DeprecationWarning, "DEP0166")
}
