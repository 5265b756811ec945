package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const HistoryFileName = "history.json"

// Entry represents a single invocation
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Prompt        string    `json:"prompt"`
	Role          string    `json:"role"`
	Model         string    `json:"model"`
	Completion    string    `json:"completion"`
	Executed      bool      `json:"executed"`
	Modifications []string  `json:"modifications,omitempty"`
}

// History manages the invocation history file
type History struct {
	Entries []Entry `json:"entries"`

	path string
}

// GetHistoryPath returns the path to the history file
func GetHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sgpt", HistoryFileName), nil
}

// Load reads the history from disk; a missing file yields an empty history
func Load() (*History, error) {
	historyPath, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(historyPath)
}

// LoadFrom reads the history from an explicit path
func LoadFrom(historyPath string) (*History, error) {
	hist := &History{Entries: []Entry{}, path: historyPath}

	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		return hist, nil
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	if err := json.Unmarshal(data, hist); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	hist.path = historyPath
	return hist, nil
}

// Save writes the history to disk
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// AddEntry appends a new entry
func (h *History) AddEntry(entry Entry) {
	h.Entries = append(h.Entries, entry)
}

// NewEntry creates an entry for the current invocation
func NewEntry(prompt, roleName, model, completion string, executed bool, modifications []string) Entry {
	return Entry{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Prompt:        prompt,
		Role:          roleName,
		Model:         model,
		Completion:    completion,
		Executed:      executed,
		Modifications: modifications,
	}
}
