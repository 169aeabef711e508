package mailbox

import "testing"

func TestResolve(t *testing.T) {
	r := NewResolver("news-catchall")

	tests := []struct {
		in   string
		want ID
	}{
		{"INBOX", Inbox},
		{"inbox", Inbox},
		{"  Spamming ", Spam},
		{"failed", Failed},
		{"NEWS-CATCHALL", ID("NEWS-CATCHALL")},
		{"news-catchall", ID("NEWS-CATCHALL")},
		{"", Inbox},
		{"Trash", Inbox},
		{"INBOX/../etc", Inbox},
		{"spam", Inbox},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver()

	for _, in := range []string{"unknown", "inbox", "FAILED", ""} {
		once := r.Resolve(in)
		twice := r.Resolve(string(once))
		if once != twice {
			t.Errorf("Resolve not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestKnown(t *testing.T) {
	r := NewResolver("list-a", "LIST-A", " ", "list-b")

	got := r.Known()
	want := []ID{Inbox, Spam, Failed, "LIST-A", "LIST-B"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d mailboxes, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Known()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got[0] = "MUTATED"
	if r.Known()[0] != Inbox {
		t.Error("Known() must return a copy")
	}
}

func TestIsKnown(t *testing.T) {
	r := NewResolver()
	if !r.IsKnown("spamming") {
		t.Error("Expected spamming to be known")
	}
	if r.IsKnown("junk") {
		t.Error("Expected junk to be unknown")
	}
}

func TestLabel(t *testing.T) {
	if got := Label(Spam); got != "Spam" {
		t.Errorf("Expected Spam, got %s", got)
	}
	if got := Label("LIST-A"); got != "List-a" {
		t.Errorf("Expected List-a, got %s", got)
	}
}
