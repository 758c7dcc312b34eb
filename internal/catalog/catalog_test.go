package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidCatalog(t *testing.T) {
	cat, err := Load("testdata/app.yaml")
	require.NoError(t, err)

	assert.Equal(t, "inbox", cat.Current)
	assert.Equal(t, []string{"login", "inbox", "error"}, cat.Names())
	assert.Equal(t, "Sign-in form", cat.Shapes[0].Description)
	assert.Equal(t, []string{"#user", "#password"}, cat.Shapes[0].Selectors)

	candidates := cat.Candidates()
	require.Len(t, candidates, 3)
	assert.Equal(t, "inbox", candidates[1].Name)
	assert.NotNil(t, candidates[1].New)
}

func TestParse_RejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "", "catalog is empty"},
		{"no shapes", "current: x\n", "invalid catalog"},
		{"empty shapes", "shapes: []\n", "invalid catalog"},
		{"no selectors", "shapes:\n  - name: a\n    selectors: []\n", "invalid catalog"},
		{"unknown field", "shapes:\n  - name: a\n    selector: ['#a']\n", "invalid catalog"},
		{"bad name", "shapes:\n  - name: 'has space'\n    selectors: ['#a']\n", "invalid catalog"},
		{"duplicate", "shapes:\n  - name: a\n    selectors: ['#a']\n  - name: a\n    selectors: ['#b']\n", `shape "a" is listed twice`},
		{"unknown current", "current: z\nshapes:\n  - name: a\n    selectors: ['#a']\n", `current shape "z"`},
		{"not yaml", "shapes: [", "parse catalog YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}
