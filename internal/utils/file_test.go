package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resume, []byte(strings.Repeat("a", 2048)), 0600))

	tests := []struct {
		name     string
		filename string
		maxSize  int64
		wantErr  string
	}{
		{name: "readable file", filename: resume},
		{name: "within limit", filename: resume, maxSize: 4096},
		{name: "over limit", filename: resume, maxSize: 1024, wantErr: "is 2.0 KB, larger than the 1.0 KB limit"},
		{name: "empty name", filename: "", wantErr: "filename cannot be empty"},
		{name: "missing", filename: filepath.Join(dir, "missing.txt"), wantErr: "file does not exist"},
		{name: "directory", filename: dir, wantErr: "path is a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.filename, tt.maxSize)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateOutputFile_CreatesDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "letter.md")
	require.NoError(t, ValidateOutputFile(out))
	assert.DirExists(t, filepath.Dir(out))
	assert.NoError(t, ValidateOutputFile(""))
}

func TestIsTextFile(t *testing.T) {
	assert.True(t, IsTextFile("resume.TXT"))
	assert.True(t, IsTextFile("job.md"))
	assert.False(t, IsTextFile("resume.pdf"))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", FormatFileSize(1536*1024))
}
