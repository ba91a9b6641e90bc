package ringbuf

import (
	"bytes"
	"testing"
)

func TestWriteReadGrowth(t *testing.T) {
	rb := New(4)
	if rb.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", rb.Cap())
	}

	rb.Write([]byte("ab"))
	if rb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rb.Len())
	}

	rb.Write([]byte("cdefgh"))
	if rb.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", rb.Len())
	}
	if rb.Cap() < 8 {
		t.Fatalf("Cap() = %d, want >= 8 after growth", rb.Cap())
	}

	if got := rb.Peek(8); !bytes.Equal(got, []byte("abcdefgh")) {
		t.Fatalf("Peek(8) = %q, want %q", got, "abcdefgh")
	}

	taken := rb.Take(3)
	if !bytes.Equal(taken, []byte("abc")) {
		t.Fatalf("Take(3) = %q, want %q", taken, "abc")
	}
	if rb.Len() != 5 {
		t.Fatalf("Len() after Take = %d, want 5", rb.Len())
	}

	rb.Discard(2)
	if got := rb.Peek(3); !bytes.Equal(got, []byte("fgh")) {
		t.Fatalf("Peek(3) after Discard = %q, want %q", got, "fgh")
	}
}

func TestWrapAround(t *testing.T) {
	rb := New(4)
	rb.Write([]byte("abcd"))
	rb.Discard(3)
	rb.Write([]byte("ef"))
	if got := rb.Take(rb.Len()); !bytes.Equal(got, []byte("def")) {
		t.Fatalf("Take after wraparound = %q, want %q", got, "def")
	}
}
