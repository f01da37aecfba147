package services

import (
	"strings"

	"siramm-project/web-service/models"
)

const fallbackScope = "project"

var (
	// DefaultScopes is offered for a project that declares no job scope.
	DefaultScopes = []string{"project", "task", "invoice"}
	// GlobalScopes is offered by the task-wide view, which spans projects.
	GlobalScopes = []string{"project", "task", "invoice", "activity", "member"}
)

// ResolveScopes turns a project's job scope into the ordered, de-duplicated
// option list. The first option is the default scope for new tasks.
func ResolveScopes(jobScope models.JobScope) []string {
	seen := make(map[string]bool, len(jobScope))
	var out []string
	for _, label := range jobScope {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	return out
}

// ResolveRawScopes is ResolveScopes for a comma-separated string.
func ResolveRawScopes(raw string) []string {
	return ResolveScopes(models.SplitJobScope(raw))
}

func ResolveGlobalScopes() []string {
	return append([]string(nil), GlobalScopes...)
}

// DisplayScope picks the option a row's scope dropdown shows. It never
// changes the stored value.
func DisplayScope(stored string, options []string) string {
	if i := strings.IndexByte(stored, ','); i >= 0 {
		stored = strings.TrimSpace(stored[:i])
	}
	for _, o := range options {
		if o == stored {
			return stored
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return fallbackScope
}
