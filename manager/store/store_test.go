package store

import (
	"os"
	"path/filepath"
	"testing"
)

func AssertEquals(t *testing.T, expected interface{}, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Errorf("expected: %v, actual: %v", expected, actual)
	}
}

func TestFile_LoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	f := NewFile(path)

	routes := f.Load()
	AssertEquals(t, 0, len(routes))

	// missing store is initialized with an empty document
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("store file should have been created: %v", err)
	}
	AssertEquals(t, `{
  "servers": []
}`, string(content))
}

func TestFile_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	if err := os.WriteFile(path, []byte("{not-json"), 0644); err != nil {
		t.Fatal(err)
	}

	routes := NewFile(path).Load()
	AssertEquals(t, 0, len(routes))
}

func TestFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	f := NewFile(path)

	mappings := []Mapping{
		{From: "example.com", To: "10.0.0.9:9000"},
		{From: "api.example.com", To: "tasks.api:8080"},
	}
	if err := f.Save(mappings); err != nil {
		t.Fatalf("failed to save routes: %v", err)
	}

	routes := f.Load()
	AssertEquals(t, 2, len(routes))
	AssertEquals(t, "10.0.0.9:9000", routes["example.com"])
	AssertEquals(t, "tasks.api:8080", routes["api.example.com"])
}

func TestFile_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	f := NewFile(path)

	if err := f.Save([]Mapping{{From: "a.com", To: "1.2.3.4:80"}}); err != nil {
		t.Fatalf("failed to save routes: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file should have been renamed away")
	}
}
