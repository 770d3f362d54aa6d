package advisory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "id": "GHSA-29mw-wpgm-hmr9",
  "summary": "Prototype pollution in lodash",
  "aliases": ["CVE-2020-8203"],
  "affected": [
    {
      "package": {"name": "lodash", "ecosystem": "npm"},
      "ranges": [
        {"type": "SEMVER", "events": [{"introduced": "0"}, {"fixed": "4.17.19"}]}
      ],
      "ecosystem_specific": {"symbols": ["lodash/merge.merge", "lodash/zipObjectDeep.zipObjectDeep"]}
    }
  ]
}`

func TestParseFlattensAffected(t *testing.T) {
	recs, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, "GHSA-29mw-wpgm-hmr9", r.ID)
	assert.Equal(t, "lodash", r.Package)
	assert.Equal(t, "npm", r.Ecosystem)
	assert.Equal(t, []string{"CVE-2020-8203"}, r.Aliases)
	require.Len(t, r.Ranges, 1)
	assert.Equal(t, "0", r.Ranges[0].Introduced)
	assert.Equal(t, "4.17.19", r.Ranges[0].Fixed)
	assert.Len(t, r.Symbols, 2)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing id", `{"affected": [{"package": {"name": "x", "ecosystem": "npm"}}]}`},
		{"missing affected", `{"id": "GHSA-x"}`},
		{"empty affected", `{"id": "GHSA-x", "affected": []}`},
		{"package without ecosystem", `{"id": "GHSA-x", "affected": [{"package": {"name": "x"}}]}`},
		{"not json", `{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestAffectsRanges(t *testing.T) {
	r := Record{
		Ranges: []Range{{Introduced: "1.2.0", Fixed: "1.4.0"}},
	}
	assert.False(t, r.Affects("1.1.9"))
	assert.True(t, r.Affects("1.2.0"))
	assert.True(t, r.Affects("1.3.7"))
	assert.False(t, r.Affects("1.4.0"), "fixed version is excluded")
	assert.False(t, r.Affects("2.0.0"))
}

func TestAffectsOpenRange(t *testing.T) {
	r := Record{Ranges: []Range{{Introduced: "0"}}}
	assert.True(t, r.Affects("0.0.1"))
	assert.True(t, r.Affects("99.0.0"))
}

func TestAffectsExactVersions(t *testing.T) {
	r := Record{Versions: []string{"2.1.0", "2.1.1"}}
	assert.True(t, r.Affects("2.1.0"))
	assert.True(t, r.Affects("v2.1.1"))
	assert.False(t, r.Affects("2.1.2"))
}

func TestAffectsNoConstraints(t *testing.T) {
	r := Record{}
	assert.True(t, r.Affects("1.0.0"), "a record with no ranges affects all versions")
}

func TestAffectsUnparseableVersionIsConservative(t *testing.T) {
	r := Record{Ranges: []Range{{Introduced: "1.0.0", Fixed: "2.0.0"}}}
	assert.True(t, r.Affects("not-a-version"),
		"an unparseable version must not be dismissed as unaffected")
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(sampleDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"id": "x"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	recs, issues, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Path, "bad.json")
}
