package cache

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestDiskCache_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		level int
		value []byte
	}{
		{"small uncompressed", 3, []byte("tiny")},
		{"large compressed", 3, bytes.Repeat([]byte{0, 1, 2, 3}, 2048)},
		{"compression off", 0, bytes.Repeat([]byte{7}, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, err := NewDiskCache(t.TempDir(), 1<<20, tt.level)
			if err != nil {
				t.Fatalf("NewDiskCache failed: %v", err)
			}
			defer dc.Close()

			if err := dc.Put("sipo", tt.value); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, ok := dc.Get("sipo")
			if !ok {
				t.Fatal("Get missed")
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("value mismatch: got %d bytes, want %d", len(got), len(tt.value))
			}
		})
	}
}

func TestDiskCache_CompressesRepetitiveData(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	value := make([]byte, 16*1024) // silence compresses well
	_ = dc.Put("silence", value)

	if dc.Size() >= int64(len(value)) {
		t.Errorf("Size on disk %d should be below %d", dc.Size(), len(value))
	}
	entries := dc.Entries()
	if len(entries) != 1 || entries[0].Size != int64(len(value)) {
		t.Errorf("Entries = %+v", entries)
	}
}

func TestDiskCache_PersistsIndex(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	_ = dc.Put("kato", []byte("miaŭ"))
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("kato")
	if !ok || string(got) != "miaŭ" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
	if reopened.Size() != int64(len("miaŭ")) {
		t.Errorf("Size after reopen = %d", reopened.Size())
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 1<<20, 0)
	defer dc.Close()

	_ = dc.Put("domo", []byte("data"))
	if err := os.Remove(dc.filePath("domo")); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if _, ok := dc.Get("domo"); ok {
		t.Error("Get should miss when the file is gone")
	}
	if dc.Contains("domo") {
		t.Error("entry should be dropped from the index")
	}
	if dc.Size() != 0 {
		t.Errorf("Size = %d, want 0", dc.Size())
	}
}

func TestDiskCache_Eviction(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 100, 0)
	defer dc.Close()

	for i := 0; i < 4; i++ {
		_ = dc.Put(fmt.Sprintf("key-%d", i), make([]byte, 25))
		time.Sleep(2 * time.Millisecond)
	}
	dc.Get("key-0")

	_ = dc.Put("key-new", make([]byte, 25))

	if !dc.Contains("key-0") {
		t.Error("recently read key-0 should survive")
	}
	if dc.Contains("key-1") {
		t.Error("key-1 should have been evicted")
	}
	if dc.Size() > 100 {
		t.Errorf("Size %d exceeds capacity", dc.Size())
	}
	if err := dc.Put("huge", make([]byte, 101)); err != ErrItemTooLarge {
		t.Errorf("Put = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc, _ := NewDiskCache(t.TempDir(), 1<<20, 0)
	defer dc.Close()

	_ = dc.Put("old", []byte("1"))
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("new", []byte("2"))

	if removed := dc.RemoveOlderThan(cutoff); removed != 1 {
		t.Errorf("RemoveOlderThan = %d, want 1", removed)
	}
	if dc.Contains("old") || !dc.Contains("new") {
		t.Error("wrong entry removed")
	}
}
