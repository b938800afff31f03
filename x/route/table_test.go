package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]string{"/", "/health", "/metrics", "/css", "/js"},
		[]string{"/auth"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestClassifyDefaultsToProtected(t *testing.T) {
	table := newTestTable(t)

	// anything not enumerated is Protected, including the paths the
	// classifier has never heard of
	assert.Equal(t, Protected, table.Classify("/admin/users"))
	assert.Equal(t, Protected, table.Classify("/library"))
	assert.Equal(t, Protected, table.Classify("/api/v1/items"))
	assert.Equal(t, Protected, table.Classify("/totally/unknown"))
}

func TestClassifyEnumerated(t *testing.T) {
	table := newTestTable(t)

	assert.Equal(t, Public, table.Classify("/"))
	assert.Equal(t, Public, table.Classify("/health"))
	assert.Equal(t, Public, table.Classify("/css/site.css"))
	assert.Equal(t, AuthFlow, table.Classify("/auth/login"))
	assert.Equal(t, AuthFlow, table.Classify("/auth/bootstrap"))
	assert.Equal(t, AuthFlow, table.Classify("/auth"))
}

func TestClassifySegmentBoundaries(t *testing.T) {
	table := newTestTable(t)

	// prefixes only match whole path segments
	assert.Equal(t, Protected, table.Classify("/authx"))
	assert.Equal(t, Protected, table.Classify("/healthcheck"))

	// root is exact, not a wildcard
	assert.Equal(t, Protected, table.Classify("/anything"))
}

func TestClassifyNormalizesTrailingSlash(t *testing.T) {
	table := newTestTable(t)

	assert.Equal(t, AuthFlow, table.Classify("/auth/login/"))
	assert.Equal(t, Protected, table.Classify("/admin/"))
	assert.Equal(t, Public, table.Classify(""))
}

func TestLongestPrefixWins(t *testing.T) {
	table, err := NewTable(
		[]string{"/docs/public"},
		[]string{"/docs"},
	)
	assert.NoError(t, err)

	assert.Equal(t, Public, table.Classify("/docs/public/intro"))
	assert.Equal(t, AuthFlow, table.Classify("/docs/private"))
}

func TestDuplicatePrefixIsConfigurationError(t *testing.T) {
	_, err := NewTable([]string{"/auth"}, []string{"/auth"})
	assert.Error(t, err)

	_, err = NewTable([]string{"/css", "/css"}, nil)
	assert.Error(t, err)

	// trailing slash does not disguise a duplicate
	_, err = NewTable([]string{"/css/"}, []string{"/css"})
	assert.Error(t, err)
}

func TestClassIsTotal(t *testing.T) {
	table := newTestTable(t)

	for _, path := range []string{"", "/", "//", "admin", "/admin", "/ADMIN", "/auth/../admin"} {
		class := table.Classify(path)
		assert.Contains(t, []Class{Public, AuthFlow, Protected}, class, "path %q", path)
	}
}
