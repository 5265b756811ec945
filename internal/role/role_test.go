package role

import (
	"errors"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	if err := s.CreateDefaults("Linux", "zsh"); err != nil {
		t.Fatalf("CreateDefaults failed: %v", err)
	}
	return s
}

func TestCreateDefaults(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{DefaultRoleName, ShellRoleName, DescribeRoleName, CodeRoleName} {
		r, err := s.Get(name)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", name, err)
		}
		if !strings.HasPrefix(r.Role, "You are "+name) {
			t.Errorf("role %q missing name prefix: %q", name, r.Role[:40])
		}
	}
}

func TestCreateDefaultsFillsTemplates(t *testing.T) {
	s := newTestStore(t)

	shell, err := s.Get(ShellRoleName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(shell.Role, "Linux") || !strings.Contains(shell.Role, "zsh") {
		t.Errorf("shell role not templated with os/shell: %q", shell.Role)
	}
}

func TestCreateDefaultsIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	before, err := s.Get(ShellRoleName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Second run with different variables must not overwrite existing roles.
	if err := s.CreateDefaults("Windows", "powershell.exe"); err != nil {
		t.Fatalf("second CreateDefaults failed: %v", err)
	}
	after, err := s.Get(ShellRoleName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if before.Role != after.Role {
		t.Error("existing role was overwritten by CreateDefaults")
	}
}

func TestGetUnknownRole(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("no-such-role")
	if !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestCreateAndDuplicate(t *testing.T) {
	s := newTestStore(t)

	r, err := s.Create("reviewer", "You review shell scripts.")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(r.Role, "You are reviewer") {
		t.Errorf("created role missing template prefix: %q", r.Role)
	}

	if _, err := s.Create("reviewer", "something else"); err == nil {
		t.Error("expected error creating duplicate role")
	}
}

func TestCheckGet(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		shell, describe, code bool
		want                  string
	}{
		{true, false, false, ShellRoleName},
		{false, true, false, DescribeRoleName},
		{false, false, true, CodeRoleName},
		{false, false, false, DefaultRoleName},
	}

	for _, tt := range tests {
		r, err := s.CheckGet(tt.shell, tt.describe, tt.code)
		if err != nil {
			t.Fatalf("CheckGet failed: %v", err)
		}
		if r.Name != tt.want {
			t.Errorf("CheckGet(%v,%v,%v) = %q, want %q", tt.shell, tt.describe, tt.code, r.Name, tt.want)
		}
	}
}

func TestUsesMarkdown(t *testing.T) {
	s := newTestStore(t)

	shell, _ := s.Get(ShellRoleName)
	if shell.UsesMarkdown() {
		t.Error("shell role must not use markdown")
	}

	describe, _ := s.Get(DescribeRoleName)
	if !describe.UsesMarkdown() {
		t.Error("describe role must use markdown")
	}

	def, _ := s.Get(DefaultRoleName)
	if !def.UsesMarkdown() {
		t.Error("default role must use markdown")
	}
}

func TestSameRoleAndNameFromMessage(t *testing.T) {
	s := newTestStore(t)

	shell, _ := s.Get(ShellRoleName)
	if !shell.SameRole(shell.Role) {
		t.Error("SameRole must match the role's own system message")
	}
	if shell.SameRole("You are Code Generator\nwhatever") {
		t.Error("SameRole must not match a different role")
	}

	if got := NameFromMessage(shell.Role); got != ShellRoleName {
		t.Errorf("NameFromMessage = %q, want %q", got, ShellRoleName)
	}
	if got := NameFromMessage(""); got != "" {
		t.Errorf("NameFromMessage(\"\") = %q, want empty", got)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 4 {
		t.Fatalf("expected 4 default roles, got %d", len(names))
	}

	if err := s.Delete(CodeRoleName); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(CodeRoleName); !errors.Is(err, ErrRoleNotFound) {
		t.Error("deleted role still retrievable")
	}

	if err := s.Delete("no-such-role"); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound deleting unknown role, got %v", err)
	}
}

func TestOSNameConfigured(t *testing.T) {
	if got := OSName("FreeBSD 14"); got != "FreeBSD 14" {
		t.Errorf("configured OS name not honored: %q", got)
	}
	if got := OSName("auto"); got == "" {
		t.Error("auto OS name must not be empty")
	}
}

func TestShellNameConfigured(t *testing.T) {
	if got := ShellName("fish"); got != "fish" {
		t.Errorf("configured shell name not honored: %q", got)
	}

	t.Setenv("SHELL", "/usr/bin/zsh")
	if got := ShellName("auto"); got != "zsh" {
		t.Errorf("expected zsh from $SHELL, got %q", got)
	}

	t.Setenv("SHELL", "")
	if got := ShellName(""); got != "sh" {
		t.Errorf("expected sh fallback, got %q", got)
	}
}
