package fsname

import "testing"

func TestNewRejectsOverlong(t *testing.T) {
	long := make([]byte, Size)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := New(string(long)); err != ErrTooLong {
		t.Fatalf("New(56 bytes) = %v, want ErrTooLong", err)
	}

	ok := string(long[:MaxLen])
	n, err := New(ok)
	if err != nil {
		t.Fatalf("New(55 bytes) returned error: %v", err)
	}
	if n.String() != ok {
		t.Fatalf("String() = %q, want %q", n.String(), ok)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	n, err := New("report.txt")
	if err != nil {
		t.Fatal(err)
	}
	encoded := n.Bytes()
	if len(encoded) != Size {
		t.Fatalf("encoded length = %d, want %d", len(encoded), Size)
	}
	decoded := FromBytes(encoded[:])
	if !decoded.Equal(n) {
		t.Fatalf("FromBytes(Bytes()) = %q, want %q", decoded, n)
	}
}

func TestEmpty(t *testing.T) {
	var zero Name
	if !zero.Empty() {
		t.Fatal("zero value should be Empty")
	}
	n, _ := New("x")
	if n.Empty() {
		t.Fatal("non-empty name reported Empty")
	}
}

func TestFromBytesStopsAtZero(t *testing.T) {
	buf := make([]byte, Size)
	copy(buf, "abc")
	n := FromBytes(buf)
	if n.String() != "abc" {
		t.Fatalf("String() = %q, want %q", n.String(), "abc")
	}
}
