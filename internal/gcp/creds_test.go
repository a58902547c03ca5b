package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ClientOptions(""))
	assert.Len(t, ClientOptions("  ", "scope-a"), 1)
	assert.Len(t, ClientOptions(`{"type":"service_account"}`), 1)
	assert.Len(t, ClientOptions("/etc/sa.json", "scope-a"), 2)
}
