package assets

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestNameFormat(t *testing.T) {
	if got := Name(3, 0, "png"); got != "image_p3_0.png" {
		t.Errorf("Name = %q", got)
	}
	if got := Name(12, 4, "jpg"); got != "image_p12_4.jpg" {
		t.Errorf("Name = %q", got)
	}
}

func TestStoreWriteOnce(t *testing.T) {
	s := NewStore()
	first := s.Put(1, 0, "png", []byte("first"))
	second := s.Put(1, 0, "jpg", []byte("second"))

	if first != second {
		t.Errorf("second Put returned %q, want existing %q", second, first)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestStoreNamesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Put(2, 1, "png", nil)
	s.Put(1, 0, "jpg", nil)

	want := []string{"image_p2_1.png", "image_p1_0.jpg"}
	if got := s.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestStoreConcurrentDistinctKeys(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for page := 1; page <= 8; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			for idx := 0; idx < 4; idx++ {
				s.Put(page, idx, "png", []byte{byte(page), byte(idx)})
			}
		}(page)
	}
	wg.Wait()

	if s.Len() != 32 {
		t.Errorf("len = %d, want 32", s.Len())
	}
}

func TestWriteDir(t *testing.T) {
	s := NewStore()
	s.Put(1, 0, "png", []byte("payload"))

	dir := filepath.Join(t.TempDir(), "assets")
	if err := s.WriteDir(dir); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "image_p1_0.png"))
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("payload = %q", data)
	}
}

func TestWriteDirEmptySkipsCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	if err := NewStore().WriteDir(dir); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("empty store should not create the directory")
	}
}
