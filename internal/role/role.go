package role

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Default role names. The four defaults are created on first run and the
// shell/describe/code mode flags map onto them.
const (
	DefaultRoleName  = "ShellGPT"
	ShellRoleName    = "Shell Command Generator"
	DescribeRoleName = "Shell Command Descriptor"
	CodeRoleName     = "Code Generator"
)

// markdownMarker tags roles whose replies should be rendered as markdown
const markdownMarker = "APPLY MARKDOWN"

const roleTemplate = "You are %s\n%s"

const shellRoleText = `Provide only %[2]s commands for %[1]s without any description.
If there is a lack of details, provide the most logical solution.
Ensure the output is a valid shell command.
If multiple steps are required, try to combine them together using &&.
Provide only plain text without Markdown formatting.
Do not use Markdown formatting such as ` + "```" + `.`

const describeRoleText = `Provide a terse, single sentence description of the given shell command.
Describe each argument and option of the command.
Provide short responses in about 80 words.
` + markdownMarker

const codeRoleText = `Provide only code as output without any description.
Provide only code in plain text format without Markdown formatting.
Do not include symbols such as ` + "```" + ` or ` + "```python" + `.
If there is a lack of details, provide the most logical solution.
You are not allowed to ask for more details.
For example if the prompt is "Hello world Python", you should return "print('Hello world')".`

const defaultRoleText = `You are a programming and system administration assistant.
You are managing the %[1]s operating system with the %[2]s shell.
Provide short responses in about 100 words, unless you are explicitly asked for more details.
If you need to store any data, assume it will be stored in the conversation.
` + markdownMarker

// SystemRole is a named system prompt shaping how replies are interpreted
type SystemRole struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ErrRoleNotFound is returned when a named role has no stored file
var ErrRoleNotFound = errors.New("role not found")

// Store manages role files in a single directory, one JSON file per role
type Store struct {
	dir string
}

// NewStore creates a role store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// CreateDefaults writes the four default roles if they do not exist yet.
// osName and shellName fill the role templates.
func (s *Store) CreateDefaults(osName, shellName string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create role directory: %w", err)
	}

	defaults := []SystemRole{
		{Name: DefaultRoleName, Role: fmt.Sprintf(defaultRoleText, osName, shellName)},
		{Name: ShellRoleName, Role: fmt.Sprintf(shellRoleText, osName, shellName)},
		{Name: DescribeRoleName, Role: describeRoleText},
		{Name: CodeRoleName, Role: codeRoleText},
	}

	for _, r := range defaults {
		if s.exists(r.Name) {
			continue
		}
		if err := s.save(r); err != nil {
			return err
		}
	}
	return nil
}

// Get loads a role by name
func (s *Store) Get(name string) (*SystemRole, error) {
	data, err := os.ReadFile(s.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, name)
		}
		return nil, fmt.Errorf("failed to read role file: %w", err)
	}

	var r SystemRole
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse role file: %w", err)
	}
	return &r, nil
}

// Create stores a new custom role. The stored prompt is prefixed with the
// "You are <name>" line so chat sessions can recover the role later.
func (s *Store) Create(name, description string) (*SystemRole, error) {
	if name == "" {
		return nil, errors.New("role name is required")
	}
	if s.exists(name) {
		return nil, fmt.Errorf("role %q already exists", name)
	}

	r := SystemRole{Name: name, Role: description}
	if err := s.save(r); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns all stored role names sorted by file modification time
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read role directory: %w", err)
	}

	type roleFile struct {
		name  string
		mtime int64
	}
	files := make([]roleFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, roleFile{
			name:  strings.TrimSuffix(entry.Name(), ".json"),
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// Delete removes a stored role
func (s *Store) Delete(name string) error {
	if !s.exists(name) {
		return fmt.Errorf("%w: %q", ErrRoleNotFound, name)
	}
	return os.Remove(s.filePath(name))
}

// CheckGet maps the mode flags to the matching default role. At most one
// flag may be set; with none set the default role is returned.
func (s *Store) CheckGet(shell, describe, code bool) (*SystemRole, error) {
	switch {
	case shell:
		return s.Get(ShellRoleName)
	case describe:
		return s.Get(DescribeRoleName)
	case code:
		return s.Get(CodeRoleName)
	default:
		return s.Get(DefaultRoleName)
	}
}

// UsesMarkdown reports whether replies for this role should be rendered as
// markdown.
func (r *SystemRole) UsesMarkdown() bool {
	return strings.Contains(r.Role, markdownMarker)
}

// SameRole reports whether a stored chat's system message was produced by
// this role.
func (r *SystemRole) SameRole(initialMessage string) bool {
	if initialMessage == "" {
		return false
	}
	return strings.Contains(initialMessage, "You are "+r.Name)
}

// NameFromMessage recovers the role name from a system message, or ""
func NameFromMessage(initialMessage string) string {
	if initialMessage == "" {
		return ""
	}
	firstLine, _, _ := strings.Cut(initialMessage, "\n")
	if after, ok := strings.CutPrefix(firstLine, "You are "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (s *Store) exists(name string) bool {
	_, err := os.Stat(s.filePath(name))
	return err == nil
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) save(r SystemRole) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create role directory: %w", err)
	}

	r.Role = fmt.Sprintf(roleTemplate, r.Name, r.Role)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	if err := os.WriteFile(s.filePath(r.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write role file: %w", err)
	}
	return nil
}
