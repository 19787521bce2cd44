package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SampleMaster is a Galton-like master table: identifiers follow descending
// father height and family 136A is listed last. Imputing it with the default
// tables makes five substitutions; reindexing moves 136A to identifier 5.
const SampleMaster = `1,18.5,7.0,13.2,,,,,,,,,,9.2,9.0,9.0,,,,,,,4
2,15.5,6.5,13.5,12.5,,,,,,,,,5.5,5.5,,,,,,,,4
3,15.0,4.0,,,,,,,,,,,short,,,,,,,,,2
4,15.0,4.0,10.5,medium,,,,,,,,,6.5,,,,,,,,,5
5,12.0,5.0,11.0,tallish,7.5,,,,,,,,,,,,,,,,,3
136A,15.0,3.0,9.5,,,,,,,,,,tall,very tall,,,,,,,,1
`

// WriteFile writes content to path, creating parent directories
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
