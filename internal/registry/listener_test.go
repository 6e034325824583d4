package registry

import (
	"testing"
	"time"

	"cipherpack/internal/cipherpack"
	"cipherpack/internal/header"
	"cipherpack/internal/testutil"
)

// recordingInner captures every callback it receives, so tests can assert
// Wrap forwards them unchanged.
type recordingInner struct {
	events []string
	accept bool
}

func (r *recordingInner) NotifyError(decryptMode bool, msg string) {
	r.events = append(r.events, "error:"+msg)
}
func (r *recordingInner) NotifyHeader(decryptMode bool, h *header.PackHeader, verified bool) {
	r.events = append(r.events, "header")
}
func (r *recordingInner) NotifyProgress(decryptMode bool, contentSize, bytesProcessed int64) {
	r.events = append(r.events, "progress")
}
func (r *recordingInner) NotifyEnd(decryptMode bool, h *header.PackHeader, success bool) {
	if success {
		r.events = append(r.events, "end:ok")
	} else {
		r.events = append(r.events, "end:fail")
	}
}
func (r *recordingInner) GetSendContent(decryptMode bool) bool { return true }
func (r *recordingInner) ContentProcessed(decryptMode bool, isHeader bool, data []byte, isFinal bool) bool {
	r.events = append(r.events, "content")
	return r.accept
}

var _ cipherpack.Listener = (*recordingInner)(nil)

func TestWrapForwardsEveryCallbackUnchanged(t *testing.T) {
	s := newTestStore(t)
	inner := &recordingInner{accept: true}
	l := Wrap("pack", s, nil, inner)

	h := &header.PackHeader{
		HostKeyFingerprint:    []byte{0x01},
		RecipientFingerprints: [][]byte{{0x02}},
		ContentSize:           42,
	}

	l.NotifyHeader(false, h, true)
	l.NotifyProgress(false, 42, 21)
	if got := l.GetSendContent(false); !got {
		t.Fatalf("GetSendContent() = %v, want true", got)
	}
	if got := l.ContentProcessed(false, false, []byte("x"), false); !got {
		t.Fatalf("ContentProcessed() = %v, want true (from inner)", got)
	}
	l.NotifyEnd(false, h, true)

	want := []string{"header", "progress", "content", "end:ok"}
	if len(inner.events) != len(want) {
		t.Fatalf("events = %v, want %v", inner.events, want)
	}
	for i := range want {
		if inner.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", inner.events, want)
		}
	}
}

func TestWrapRecordsEntryOnNotifyEnd(t *testing.T) {
	s := newTestStore(t)
	inner := &recordingInner{accept: true}
	l := Wrap("unpack", s, nil, inner)

	h := &header.PackHeader{
		HostKeyFingerprint:    []byte{0xAA},
		RecipientFingerprints: [][]byte{{0xBB}},
		ContentSize:           100,
	}
	l.NotifyHeader(true, h, true)
	l.NotifyEnd(true, h, true)

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.Mode != "unpack" || !got.Success || got.ContentSize != 100 {
		t.Fatalf("entry = %+v, want mode unpack/success/size 100", got)
	}
	if len(got.HostFingerprint) != 1 || got.HostFingerprint[0] != 0xAA {
		t.Fatalf("entry.HostFingerprint = %v, want [0xAA]", got.HostFingerprint)
	}
}

func TestWrapRecordsFailureWithErrorMessage(t *testing.T) {
	s := newTestStore(t)
	inner := &recordingInner{accept: true}
	l := Wrap("pack", s, nil, inner)

	l.NotifyError(false, "authentication failure")
	l.NotifyEnd(false, nil, false)

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	if entries[0].Success {
		t.Fatal("expected entry to record failure")
	}
	if entries[0].ErrorKind != "authentication failure" {
		t.Fatalf("entry.ErrorKind = %q, want %q", entries[0].ErrorKind, "authentication failure")
	}
}

// wrapWith's clock and ID generator are satisfied by testutil's
// StubClock/StubIDGenerator, the same fakes the teacher's own Clock
// abstraction is tested with.
func TestWrapWithRecordsDeterministicTimestampsAndID(t *testing.T) {
	s := newTestStore(t)
	inner := &recordingInner{accept: true}

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := testutil.NewStubClock(started)
	idGen := testutil.NewStubIDGenerator()
	l := wrapWith("pack", s, nil, inner, clock, idGen)

	l.NotifyEnd(false, &header.PackHeader{ContentSize: 7}, true)

	entries, err := s.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.OperationID != "id-1" {
		t.Fatalf("OperationID = %q, want %q", got.OperationID, "id-1")
	}
	if !got.StartedAt.Equal(started) || !got.FinishedAt.Equal(started) {
		t.Fatalf("StartedAt/FinishedAt = %v/%v, want both %v", got.StartedAt, got.FinishedAt, started)
	}
}
