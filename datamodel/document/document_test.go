package document

import "testing"

func TestExtendThrough(t *testing.T) {
	d := New([]string{"a"})
	d.ExtendThrough(3)
	if len(d.Lines) != 4 {
		t.Fatalf("len = %d, want 4", len(d.Lines))
	}
	if d.Lines[0] != "a" || d.Lines[3] != "" {
		t.Fatalf("unexpected lines %v", d.Lines)
	}

	// Already long enough: no-op.
	d.ExtendThrough(1)
	if len(d.Lines) != 4 {
		t.Fatalf("len after no-op extend = %d, want 4", len(d.Lines))
	}
}

func TestReplaceRange(t *testing.T) {
	d := New([]string{"hello"})
	d.ReplaceRange(0, 1, 2, "u")
	if d.Lines[0] != "hullo" {
		t.Fatalf("got %q, want %q", d.Lines[0], "hullo")
	}
}

func TestReplaceRangeClamps(t *testing.T) {
	d := New([]string{"abc"})
	d.ReplaceRange(0, -4, 99, "xyz")
	if d.Lines[0] != "xyz" {
		t.Fatalf("got %q, want %q", d.Lines[0], "xyz")
	}

	d = New([]string{"abc"})
	d.ReplaceRange(0, 3, 10, "!")
	if d.Lines[0] != "abc!" {
		t.Fatalf("got %q, want %q", d.Lines[0], "abc!")
	}
}
