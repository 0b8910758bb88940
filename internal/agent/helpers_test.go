package agent_test

import (
	"testing"

	"github.com/p-n-ai/pai-reader/internal/content"
)

func testCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	return content.Default()
}
