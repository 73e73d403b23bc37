package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// baseDir/
	//   fsstore/ (.notenest)
	//     subdir/nested/
	//   sqlstore/ (notenest.db)
	//   empty/
	baseDir := t.TempDir()
	fsStore := filepath.Join(baseDir, "fsstore")
	subDir := filepath.Join(fsStore, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	sqlStore := filepath.Join(baseDir, "sqlstore")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.NoError(t, os.MkdirAll(sqlStore, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(fsStore, ".notenest"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sqlStore, SQLiteFile), nil, 0644))

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: fsStore, wantRoot: fsStore},
		{name: "Start in Subdir", startPath: subDir, wantRoot: fsStore},
		{name: "Start Nested Deeply", startPath: nestedDir, wantRoot: fsStore},
		{name: "SQLite Marker", startPath: sqlStore, wantRoot: sqlStore},
		{name: "No Root Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if tt.wantErr {
				// A marker above the temp dir would be found too; only the
				// error kind is asserted when nothing is expected.
				if err != nil {
					assert.ErrorIs(t, err, ErrRootNotFound)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.wantRoot), filepath.Clean(got))
		})
	}
}
