package history

import (
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFile(t *testing.T) {
	hist, err := LoadFrom(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if len(hist.Entries) != 0 {
		t.Errorf("expected empty history, got %d entries", len(hist.Entries))
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	hist, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	entry := NewEntry("list files", "Shell Command Generator", "deepseek-chat", "ls -la", true, []string{"ls -lah"})
	if entry.ID == "" {
		t.Error("entry must get an id")
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry must get a timestamp")
	}
	hist.AddEntry(entry)

	if err := hist.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(loaded.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(loaded.Entries))
	}
	got := loaded.Entries[0]
	if got.ID != entry.ID || got.Prompt != "list files" || got.Completion != "ls -la" {
		t.Errorf("entry did not roundtrip: %+v", got)
	}
	if !got.Executed {
		t.Error("executed flag lost")
	}
	if len(got.Modifications) != 1 || got.Modifications[0] != "ls -lah" {
		t.Errorf("modifications lost: %v", got.Modifications)
	}
}

func TestSaveAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	hist, _ := LoadFrom(path)
	hist.AddEntry(NewEntry("first", "ShellGPT", "deepseek-chat", "reply one", false, nil))
	if err := hist.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	hist, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	hist.AddEntry(NewEntry("second", "ShellGPT", "deepseek-chat", "reply two", false, nil))
	if err := hist.Save(); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, _ := LoadFrom(path)
	if len(loaded.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded.Entries))
	}
	if loaded.Entries[0].Prompt != "first" || loaded.Entries[1].Prompt != "second" {
		t.Errorf("entries out of order: %+v", loaded.Entries)
	}
}
