package history

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestStoreAppend_EvictsOldestBeyondCap(t *testing.T) {
	s := NewStore(Options{MaxEntries: 3, MaxConversations: 5})
	for i := 0; i < 7; i++ {
		ok := s.Append("wa:chat", NewEntry("alice", fmt.Sprintf("msg-%d", i), testTime, false))
		if !ok {
			t.Fatalf("Append(#%d) = false, want true", i)
		}
	}
	got := s.Get("wa:chat")
	if len(got) != 3 {
		t.Fatalf("len(Get()) = %d, want 3", len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("msg-%d", i+4)
		if e.Text != want {
			t.Fatalf("entry[%d].Text = %q, want %q", i, e.Text, want)
		}
	}
}

func TestStoreAppend_AdmissionCapDropsNewConversations(t *testing.T) {
	s := NewStore(Options{MaxEntries: 5, MaxConversations: 2})
	if !s.Append("wa:a", NewEntry("alice", "hi", testTime, false)) {
		t.Fatal("Append(wa:a) = false, want true")
	}
	if !s.Append("wa:b", NewEntry("bob", "hey", testTime, false)) {
		t.Fatal("Append(wa:b) = false, want true")
	}
	// Store is at capacity: a third conversation must not be tracked.
	if s.Append("wa:c", NewEntry("carol", "yo", testTime, false)) {
		t.Fatal("Append(wa:c) = true, want false at capacity")
	}
	if got := s.Get("wa:c"); got != nil {
		t.Fatalf("Get(wa:c) = %v, want nil", got)
	}
	// Existing conversations keep accepting entries.
	if !s.Append("wa:a", NewEntry("alice", "again", testTime, false)) {
		t.Fatal("Append(wa:a) after capacity = false, want true")
	}
	if got := s.Conversations(); got != 2 {
		t.Fatalf("Conversations() = %d, want 2", got)
	}
}

func TestStoreAppend_TruncatesLongText(t *testing.T) {
	s := NewStore(Options{MaxTextRunes: 10})
	long := strings.Repeat("ä", 25)
	s.Append("wa:chat", NewEntry("alice", long, testTime, false))
	got := s.Get("wa:chat")
	if len(got) != 1 {
		t.Fatalf("len(Get()) = %d, want 1", len(got))
	}
	want := strings.Repeat("ä", 10) + TruncationMarker
	if got[0].Text != want {
		t.Fatalf("Text = %q, want %q", got[0].Text, want)
	}
	maxRunes := 10 + len([]rune(TruncationMarker))
	if n := len([]rune(got[0].Text)); n > maxRunes {
		t.Fatalf("rune length = %d, want <= %d", n, maxRunes)
	}
}

func TestTruncate_NoMarkerAtOrBelowLimit(t *testing.T) {
	cases := []struct {
		text string
		max  int
		want string
	}{
		{text: "short", max: 10, want: "short"},
		{text: "exactly10!", max: 10, want: "exactly10!"},
		{text: "eleven chars", max: 11, want: "eleven char" + TruncationMarker},
		{text: "anything", max: 0, want: "anything"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.text, tc.max); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.text, tc.max, got, tc.want)
		}
	}
}

func TestStoreGet_ReturnsCopy(t *testing.T) {
	s := NewStore(Options{})
	s.Append("wa:chat", NewEntry("alice", "hi", testTime, false))
	got := s.Get("wa:chat")
	got[0].Text = "mutated"
	if again := s.Get("wa:chat"); again[0].Text != "hi" {
		t.Fatalf("stored Text = %q, want %q", again[0].Text, "hi")
	}
}

func TestStoreClear_KeepsConversationAdmitted(t *testing.T) {
	s := NewStore(Options{MaxConversations: 1})
	s.Append("wa:a", NewEntry("alice", "hi", testTime, false))
	s.Clear("wa:a")
	if got := s.Get("wa:a"); got != nil {
		t.Fatalf("Get() after Clear = %v, want nil", got)
	}
	if !s.Append("wa:a", NewEntry("alice", "back", testTime, false)) {
		t.Fatal("Append after Clear = false, want true")
	}
}

func TestRecordReply_MarksGenerated(t *testing.T) {
	s := NewStore(Options{})
	if !s.RecordReply("wa:chat", "Prometheus", "the answer is 4", testTime) {
		t.Fatal("RecordReply() = false, want true")
	}
	got := s.Get("wa:chat")
	if len(got) != 1 {
		t.Fatalf("len(Get()) = %d, want 1", len(got))
	}
	e := got[0]
	if !e.Generated || e.FromOperator {
		t.Fatalf("entry flags = {Generated:%v FromOperator:%v}, want {true false}", e.Generated, e.FromOperator)
	}
	if e.Sender != "Prometheus" {
		t.Fatalf("Sender = %q, want %q", e.Sender, "Prometheus")
	}
}
