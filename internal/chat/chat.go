// Package chat stores conversation history for the --chat and --repl modes,
// one JSON message list per chat id.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iishyfishyy/sgpt/internal/provider"
)

// TempID names the ephemeral session that is wiped at the start of each
// invocation that uses it.
const TempID = "temp"

// ErrChatNotFound is returned when a chat id has no stored session
var ErrChatNotFound = errors.New("chat not found")

// Store manages chat session files in a single directory
type Store struct {
	dir       string
	maxLength int
}

// NewStore creates a chat store rooted at dir. maxLength bounds the number
// of retained messages per session.
func NewStore(dir string, maxLength int) *Store {
	if maxLength <= 0 {
		maxLength = 100
	}
	return &Store{dir: dir, maxLength: maxLength}
}

// Exists reports whether a session with this id is stored
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.filePath(id))
	return err == nil
}

// Read loads the messages of a stored session
func (s *Store) Read(id string) ([]provider.Message, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrChatNotFound, id)
		}
		return nil, fmt.Errorf("failed to read chat file: %w", err)
	}

	var messages []provider.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse chat file: %w", err)
	}
	return messages, nil
}

// Write stores the session messages, truncating to the length bound. The
// leading system message always survives truncation.
func (s *Store) Write(id string, messages []provider.Message) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create chat directory: %w", err)
	}

	messages = s.truncate(messages)
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	if err := os.WriteFile(s.filePath(id), data, 0644); err != nil {
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	return nil
}

// Invalidate removes a stored session. Missing sessions are not an error.
func (s *Store) Invalidate(id string) error {
	err := os.Remove(s.filePath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove chat file: %w", err)
	}
	return nil
}

// List returns all stored chat ids sorted by modification time
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chat directory: %w", err)
	}

	type chatFile struct {
		id    string
		mtime int64
	}
	files := make([]chatFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, chatFile{
			id:    strings.TrimSuffix(entry.Name(), ".json"),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.id
	}
	return ids, nil
}

// InitialMessage returns the stored system message of a session, or ""
func (s *Store) InitialMessage(id string) (string, error) {
	messages, err := s.Read(id)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 || messages[0].Role != provider.RoleSystem {
		return "", nil
	}
	return messages[0].Content, nil
}

func (s *Store) truncate(messages []provider.Message) []provider.Message {
	if len(messages) <= s.maxLength {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		kept := make([]provider.Message, 0, s.maxLength)
		kept = append(kept, messages[0])
		kept = append(kept, messages[len(messages)-(s.maxLength-1):]...)
		return kept
	}
	return messages[len(messages)-s.maxLength:]
}

func (s *Store) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}
