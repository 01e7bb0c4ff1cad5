package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-blockfs/blockfs/testhelper"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	s, err := Open(path, 512, 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesZeroFilledImage(t *testing.T) {
	s := openTestStore(t)
	if s.BlockSize() != 512 || s.NumBlocks() != 16 {
		t.Fatalf("geometry = (%d, %d), want (512, 16)", s.BlockSize(), s.NumBlocks())
	}
	raw, err := s.ReadRaw(3)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if !bytes.Equal(raw, make([]byte, 512)) {
		t.Fatal("fresh image block is not zero-filled")
	}
}

func TestWriteReadRawRoundTrip(t *testing.T) {
	s := openTestStore(t)
	payload := []byte("hello, block")
	if err := s.WriteRaw(2, payload); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	back, err := s.ReadRaw(2)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if !bytes.Equal(back[:len(payload)], payload) {
		t.Fatalf("round trip = %q, want %q", back[:len(payload)], payload)
	}
	if !bytes.Equal(back[len(payload):], make([]byte, s.BlockSize()-len(payload))) {
		t.Fatal("tail of block is not zero-padded")
	}
}

func TestWriteRawRejectsOversizedData(t *testing.T) {
	s := openTestStore(t)
	oversized := make([]byte, s.BlockSize()+1)
	if err := s.WriteRaw(0, oversized); !errors.Is(err, ErrDataExceedsBlockSize) {
		t.Fatalf("WriteRaw(oversized) = %v, want ErrDataExceedsBlockSize", err)
	}
}

func TestReadWriteBlockRoundTrip(t *testing.T) {
	s := openTestStore(t)

	type record struct{ value string }
	marshal := func(r *record) ([]byte, error) { return []byte(r.value), nil }
	unmarshal := func(b []byte) (*record, error) { return &record{value: string(bytes.TrimRight(b, "\x00"))}, nil }

	if err := WriteBlock(s, 5, &record{value: "payload"}, marshal); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := ReadBlock(s, 5, unmarshal)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if got.value != "payload" {
		t.Fatalf("got %q, want %q", got.value, "payload")
	}
}

func TestReadBlockWrapsDeserializationError(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")
	_, err := ReadBlock(s, 0, func([]byte) (int, error) { return 0, boom })
	if !errors.Is(err, ErrDeserialization) {
		t.Fatalf("err = %v, want wrapping ErrDeserialization", err)
	}
}

func TestExistsAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	if Exists(path) {
		t.Fatal("Exists reported true before creation")
	}
	s, err := Open(path, 0, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !Exists(path) {
		t.Fatal("Exists reported false after creation")
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if Exists(path) {
		t.Fatal("Exists reported true after Delete")
	}
}

func TestOffsetOverflow(t *testing.T) {
	s := &Store{blockSize: 1 << 48, numBlocks: 1}
	if _, err := s.offset(^uint16(0)); !errors.Is(err, ErrPositionOverflow) {
		t.Fatalf("offset overflow = %v, want ErrPositionOverflow", err)
	}
}

func TestWriteRawPropagatesBackendError(t *testing.T) {
	boom := errors.New("backend write failed")
	s := &Store{
		path:      "stub",
		blockSize: 512,
		numBlocks: 4,
		backend: &testhelper.FileImpl{
			Writer: func([]byte, int64) (int, error) { return 0, boom },
		},
	}
	if err := s.WriteRaw(0, []byte("x")); !errors.Is(err, boom) {
		t.Fatalf("WriteRaw error = %v, want wrapping %v", err, boom)
	}
}
