package blob

import (
	"strings"
	"sync"
	"testing"
)

func TestCreate_Get(t *testing.T) {
	s := NewStore()

	u := s.Create([]byte("<html>map</html>"), "text/html")
	if !strings.HasPrefix(u, Scheme) {
		t.Fatalf("Create() = %q, want %s prefix", u, Scheme)
	}
	// ULIDs are 26 characters
	if len(ID(u)) != 26 {
		t.Errorf("Create() returned invalid ID length: got %d, want 26", len(ID(u)))
	}

	b, err := s.Get(u)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(b.Data) != "<html>map</html>" || b.ContentType != "text/html" {
		t.Errorf("Get() = %+v", b)
	}

	if _, err := s.Get(ID(u)); err != nil {
		t.Errorf("Get() by bare ID failed: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	s := NewStore()
	u := s.Create([]byte("x"), "text/plain")

	s.Revoke(u)
	if _, err := s.Get(u); err == nil {
		t.Error("Get() should fail after Revoke")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}

	s.Revoke(u)
	s.Revoke("blob:unknown")
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get("blob:nonexistent-id")
	if err == nil {
		t.Fatal("Get() should return error for unknown URL")
	}
	if err.Error() != "blob nonexistent-id not found" {
		t.Errorf("Get() error = %q", err.Error())
	}
}

func TestConcurrentCreate(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := s.Create([]byte("doc"), "text/html")
			mu.Lock()
			seen[u] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 20 || s.Len() != 20 {
		t.Errorf("got %d unique URLs and %d blobs, want 20", len(seen), s.Len())
	}
}
