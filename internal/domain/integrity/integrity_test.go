package integrity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		algorithm string
		hash      string
		wantErr   error
	}{
		{name: "sha256", algorithm: AlgorithmSHA256, hash: strings.Repeat("a", 64)},
		{name: "sha512", algorithm: AlgorithmSHA512, hash: strings.Repeat("b", 128)},
		{name: "blake2b", algorithm: AlgorithmBLAKE2b, hash: strings.Repeat("c", 64)},
		{name: "unknown algorithm", algorithm: "md5", hash: strings.Repeat("a", 32), wantErr: ErrUnsupportedAlgorithm},
		{name: "empty hash", algorithm: AlgorithmSHA256, hash: "", wantErr: ErrEmptyHash},
		{name: "not hex", algorithm: AlgorithmSHA256, hash: strings.Repeat("z", 64), wantErr: ErrInvalidHash},
		{name: "wrong length", algorithm: AlgorithmSHA256, hash: "abcd", wantErr: ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := New(tt.algorithm, tt.hash)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.algorithm, got.Algorithm())
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	sum := strings.Repeat("AB", 32)
	got, err := Parse(" sha256:" + sum + " ")
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+strings.ToLower(sum), got.String())

	for _, bad := range []string{"", "sha256", ":abc", "sha256:"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestFromDataAndVerify(t *testing.T) {
	t.Parallel()

	for _, algo := range Algorithms() {
		t.Run(algo, func(t *testing.T) {
			t.Parallel()
			sum, err := FromData(algo, []byte("hello"))
			require.NoError(t, err)

			assert.True(t, sum.Verify([]byte("hello")))
			assert.False(t, sum.Verify([]byte("hellO")))

			reparsed, err := Parse(sum.String())
			require.NoError(t, err)
			assert.True(t, sum.Equal(reparsed))
		})
	}

	assert.False(t, Integrity{}.Verify([]byte("x")))
	assert.Empty(t, Integrity{}.String())
}

func TestIntegrity_TextRoundTrip(t *testing.T) {
	t.Parallel()

	sum, err := FromData(AlgorithmSHA256, []byte("data"))
	require.NoError(t, err)

	text, err := sum.MarshalText()
	require.NoError(t, err)

	var decoded Integrity
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, sum.Equal(decoded))
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestTree(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"manifest.json":   `{"name":"a"}`,
		"src/tool.py":     "print(1)",
		"src/lib/util.py": "x = 1",
	}

	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFiles(t, dirA, files)
	writeFiles(t, dirB, files)

	sumA, listA, err := Tree(AlgorithmSHA256, dirA, nil)
	require.NoError(t, err)
	sumB, _, err := Tree(AlgorithmSHA256, dirB, nil)
	require.NoError(t, err)

	assert.True(t, sumA.Equal(sumB), "same content in different directories must hash equal")
	assert.Equal(t, []string{"manifest.json", "src/lib/util.py", "src/tool.py"}, listA)

	writeFiles(t, dirB, map[string]string{"src/tool.py": "print(2)"})
	sumB, _, err = Tree(AlgorithmSHA256, dirB, nil)
	require.NoError(t, err)
	assert.False(t, sumA.Equal(sumB))
}

func TestTree_PathIsPartOfDigest(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFiles(t, dirA, map[string]string{"a.txt": "same"})
	writeFiles(t, dirB, map[string]string{"b.txt": "same"})

	sumA, _, err := Tree(AlgorithmSHA256, dirA, nil)
	require.NoError(t, err)
	sumB, _, err := Tree(AlgorithmSHA256, dirB, nil)
	require.NoError(t, err)
	assert.False(t, sumA.Equal(sumB))
}

func TestTree_Filter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"manifest.json":        "{}",
		"__pycache__/tool.pyc": "bytecode",
		"tool.py":              "print(1)",
		"notes.tmp":            "scratch",
	})

	filter := func(rel string, isDir bool) bool {
		if isDir {
			return rel != "__pycache__"
		}
		return !strings.HasSuffix(rel, ".tmp")
	}

	_, files, err := Tree(AlgorithmSHA256, dir, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest.json", "tool.py"}, files)
}

func TestTree_RejectsSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"real.txt": "x"})
	if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, _, err := Tree(AlgorithmSHA256, dir, nil)
	assert.ErrorIs(t, err, ErrSymlink)
}

func TestVerifyTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "one"})

	expected, _, err := Tree(AlgorithmBLAKE2b, dir, nil)
	require.NoError(t, err)

	_, ok, err := VerifyTree(expected, dir)
	require.NoError(t, err)
	assert.True(t, ok)

	writeFiles(t, dir, map[string]string{"a.txt": "two"})
	actual, ok, err := VerifyTree(expected, dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, AlgorithmBLAKE2b, actual.Algorithm())
}
