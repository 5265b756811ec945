package role

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// OSName resolves the OS name used in role templates. A configured value
// other than "auto" wins.
func OSName(configured string) string {
	if configured != "" && configured != "auto" {
		return configured
	}
	switch runtime.GOOS {
	case "linux":
		if pretty := linuxPrettyName(); pretty != "" {
			return "Linux/" + pretty
		}
		return "Linux"
	case "windows":
		return "Windows"
	case "darwin":
		return "Darwin/MacOS"
	default:
		return runtime.GOOS
	}
}

// ShellName resolves the shell name used in role templates and by the
// executor. A configured value other than "auto" wins.
func ShellName(configured string) string {
	if configured != "" && configured != "auto" {
		return configured
	}
	if runtime.GOOS == "windows" {
		// Three or more PSModulePath entries means we run under PowerShell.
		if len(strings.Split(os.Getenv("PSModulePath"), string(os.PathListSeparator))) >= 3 {
			return "powershell.exe"
		}
		return "cmd.exe"
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return filepath.Base(shell)
}

func linuxPrettyName() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if after, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(after, `"`)
		}
	}
	return ""
}
