package vault

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestMemoryVault_PutGet(t *testing.T) {
	v := NewMemoryVault("test")

	data := []byte("bundle bytes")
	if err := v.Put("files/abc", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.Get("files/abc", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("Get() = %q, want %q", buf.Bytes(), data)
	}

	if err := v.Get("missing", &buf); err == nil {
		t.Error("Get() expected error for missing object, got nil")
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	v := NewMemoryVault("test")

	if err := v.Put("obj", strings.NewReader("abc"), 99); err == nil {
		t.Error("Put() expected size mismatch error, got nil")
	}
}

func TestMemoryVault_ConcurrentAccess(t *testing.T) {
	v := NewMemoryVault("test")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := v.Put("shared", strings.NewReader("x"), 1); err != nil {
				t.Errorf("Put() error = %v", err)
			}
			var buf bytes.Buffer
			_ = v.Get("shared", &buf)
		}()
	}
	wg.Wait()

	if len(v.Names()) != 1 {
		t.Errorf("Names() = %v, want one object", v.Names())
	}
}
