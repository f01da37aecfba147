package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"siramm-project/web-service/models"
)

func TestResolveScopes_String(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, ResolveRawScopes("A, B, ,C"))
}

func TestResolveScopes_ArrayKeepsOrderAndDedupes(t *testing.T) {
	got := ResolveScopes(models.JobScope{"website", "invoice", "website", ""})
	assert.Equal(t, []string{"website", "invoice"}, got)
}

func TestResolveScopes_Fallback(t *testing.T) {
	assert.Equal(t, DefaultScopes, ResolveScopes(nil))
	assert.Equal(t, DefaultScopes, ResolveRawScopes(" , "))
	assert.Equal(t, "project", ResolveScopes(nil)[0])
	assert.Equal(t, GlobalScopes, ResolveGlobalScopes())
}

func TestResolveScopes_ReturnsCopy(t *testing.T) {
	got := ResolveScopes(nil)
	got[0] = "changed"
	assert.Equal(t, "project", DefaultScopes[0])
}

func TestDisplayScope(t *testing.T) {
	options := []string{"project", "task"}

	assert.Equal(t, "task", DisplayScope("task", options))
	assert.Equal(t, "project", DisplayScope("Invoice", options))
	assert.Equal(t, "task", DisplayScope("task, invoice", options))
	assert.Equal(t, "project", DisplayScope("invoice,task", options))
	assert.Equal(t, "project", DisplayScope("", nil))
}
