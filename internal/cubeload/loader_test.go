package cubeload

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCUE = `package cubes

cubes: Orders: {
	measures: {count: "number", revenue: "decimal"}
	dimensions: {status: "string", createdAt: "time"}
	segments: ["completed"]
}
`

const usersCUE = `package cubes

cubes: Users: {
	measures: {count: "number"}
	dimensions: {city: "string", signedUpAt: "time"}
}
`

const brokenCUE = `package cubes

cubes: Broken: measures: {x: "money"}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"orders.cue": ordersCUE,
		"users.cue":  usersCUE,
	})

	cat, errs := LoadDir(dir, Options{}, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, cat)

	assert.Equal(t, 2, cat.FileCount)
	assert.Equal(t, []string{"Orders", "Users"}, cat.Names())

	orders, ok := cat.Cube("Orders")
	require.True(t, ok)
	assert.Equal(t, []string{"completed"}, orders.Segments())

	_, ok = cat.Cube("Missing")
	assert.False(t, ok)
}

func TestLoadDirIgnoresSubdirectories(t *testing.T) {
	dir := writeFiles(t, map[string]string{"orders.cue": ordersCUE})
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "users.cue"), []byte(usersCUE), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "orders.cue")}, files)

	cat, errs := LoadDir(dir, Options{}, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 1, cat.FileCount)
	assert.Equal(t, []string{"Orders"}, cat.Names())
}

func TestLoadDirCollectsAll(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"orders.cue": ordersCUE,
		"broken.cue": brokenCUE,
	})

	cat, errs := LoadDir(dir, Options{}, LoadModeCollectAll)
	require.NotNil(t, cat)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeUnknownKind, loadErr.Code)
	assert.Contains(t, loadErr.Message, "cubes.Broken")
	assert.Equal(t, []string{"Orders"}, cat.Names())
}

func TestLoadDirFailFast(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"broken.cue": brokenCUE,
		"orders.cue": ordersCUE,
		"users.cue":  usersCUE,
	})

	_, errs := LoadDir(dir, Options{}, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		cat, errs := LoadDir(filepath.Join(t.TempDir(), "nope"), Options{}, LoadModeFailFast)
		assert.Nil(t, cat)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeNotFound, errs[0].(*LoadError).Code)
	})

	t.Run("not a directory", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"file.txt": "x"})
		cat, errs := LoadDir(filepath.Join(dir, "file.txt"), Options{}, LoadModeFailFast)
		assert.Nil(t, cat)
		assert.Equal(t, ErrCodeNotFound, errs[0].(*LoadError).Code)
	})

	t.Run("no cue files", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"readme.md": "x"})
		cat, errs := LoadDir(dir, Options{}, LoadModeFailFast)
		assert.Nil(t, cat)
		assert.Equal(t, ErrCodeNoFiles, errs[0].(*LoadError).Code)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"bad.cue": "package cubes\n\ncubes: {{{"})
		cat, errs := LoadDir(dir, Options{}, LoadModeFailFast)
		assert.Nil(t, cat)
		require.Len(t, errs, 1)
		code := errs[0].(*LoadError).Code
		assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, code)
	})

	t.Run("no cubes field", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"other.cue": "package cubes\n\nsomething: 1\n"})
		cat, errs := LoadDir(dir, Options{}, LoadModeFailFast)
		require.NotNil(t, cat)
		assert.Equal(t, ErrCodeNoCubes, errs[0].(*LoadError).Code)
	})
}

func TestLoadErrorFormatting(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNoMembers, MapFieldToErrorCode("members"))
	assert.Equal(t, ErrCodeUnknownKind, MapFieldToErrorCode("kind"))
	assert.Equal(t, ErrCodeInvalidSchema, MapFieldToErrorCode("schema"))
	assert.Equal(t, ErrCodeBadSegments, MapFieldToErrorCode("segments"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("cue"))
}

func TestNewCatalog(t *testing.T) {
	cat := NewCatalog()
	assert.Equal(t, 0, cat.Len())
	assert.Empty(t, cat.Names())
}
