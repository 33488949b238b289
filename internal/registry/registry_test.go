package registry

import (
	"testing"

	"github.com/browserpilot/gateway/internal/protocol"
)

func TestSessionsRegisterLookupUnregister(t *testing.T) {
	s := NewSessions()
	sink := make(Sink, 1)

	if _, ok := s.Lookup("s1"); ok {
		t.Fatal("lookup before register should miss")
	}

	s.Register("s1", sink)
	got, ok := s.Lookup("s1")
	if !ok || got == nil {
		t.Fatal("lookup after register should hit")
	}

	s.Unregister("s1")
	if _, ok := s.Lookup("s1"); ok {
		t.Fatal("lookup after unregister should miss")
	}

	// Idempotent.
	s.Unregister("s1")
}

func TestPendingOneShotAndUnknown(t *testing.T) {
	p := NewPending()
	sink := make(ReplySink, 1)
	p.Register("r1", sink)

	if ok := p.Complete("r1", protocol.ActionResult{RequestID: "r1", Success: true}); !ok {
		t.Fatal("first complete should succeed")
	}
	if ok := p.Complete("r1", protocol.ActionResult{RequestID: "r1", Success: true}); ok {
		t.Fatal("second complete for same request_id should be ignored (P3)")
	}
	if ok := p.Complete("never-registered", protocol.ActionResult{}); ok {
		t.Fatal("complete for unknown request_id should return false")
	}

	result := <-sink
	if result.RequestID != "r1" {
		t.Fatalf("result.RequestID = %q, want r1", result.RequestID)
	}
}

func TestPendingCorrelationUnderReversedReplies(t *testing.T) {
	p := NewPending()
	sinkA := make(ReplySink, 1)
	sinkB := make(ReplySink, 1)
	p.Register("A", sinkA)
	p.Register("B", sinkB)

	// B replies first.
	p.Complete("B", protocol.ActionResult{RequestID: "B", Data: []byte("b")})
	p.Complete("A", protocol.ActionResult{RequestID: "A", Data: []byte("a")})

	rb := <-sinkB
	ra := <-sinkA
	if string(rb.Data) != "b" || string(ra.Data) != "a" {
		t.Fatalf("correlation broken: ra=%s rb=%s", ra.Data, rb.Data)
	}
}

func TestPendingRemoveShrinksRegistry(t *testing.T) {
	p := NewPending()
	sink := make(ReplySink, 1)
	p.Register("r1", sink)
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	p.Remove("r1")
	if p.Len() != 0 {
		t.Fatalf("len after remove = %d, want 0", p.Len())
	}
	// A late reply after removal must not be delivered to anyone and must
	// not panic.
	if ok := p.Complete("r1", protocol.ActionResult{}); ok {
		t.Fatal("complete after remove should return false")
	}
}
