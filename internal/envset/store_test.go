package envset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func fileNames(t *testing.T, st *Store) []string {
	t.Helper()
	files, err := st.Files()
	require.NoError(t, err)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return names
}

func TestIndexWidth(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 1, 9: 1, 10: 1, 11: 2, 100: 2, 101: 3, 1000: 3, 1001: 4}
	for count, want := range cases {
		assert.Equal(t, want, IndexWidth(count), "count=%d", count)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "0.env", FileName(0, 1))
	assert.Equal(t, "9.env", FileName(9, 10))
	assert.Equal(t, "09.env", FileName(9, 11))
	assert.Equal(t, "042.env", FileName(42, 1000))
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	st := newStore(t)
	set := mustFromList(t, "N", "10", "1", "100")
	require.NoError(t, st.Write(set))

	assert.Equal(t, []string{"0.env", "1.env", "2.env"}, fileNames(t, st))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "1", "100"}, values(t, loaded, "N"))
}

func TestWriteShrinksWithoutStaleFiles(t *testing.T) {
	st := newStore(t)
	big, err := FromList("N", []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"})
	require.NoError(t, err)
	require.NoError(t, st.Write(big))
	assert.Len(t, fileNames(t, st), 11)
	assert.Equal(t, "00.env", fileNames(t, st)[0])

	require.NoError(t, st.Write(mustFromList(t, "N", "1", "2")))
	assert.Equal(t, []string{"0.env", "1.env"}, fileNames(t, st))
}

func TestAddIntoEmptyStore(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick", "merge"}))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "merge"}, values(t, loaded, "ALGO"))
}

func TestAddCrossesWithExisting(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick", "merge"}))
	require.NoError(t, st.Add("N", []string{"10", "100"}))

	loaded, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, 4, loaded.Len())
	assert.Equal(t, []string{"quick", "quick", "merge", "merge"}, values(t, loaded, "ALGO"))
	assert.Equal(t, []string{"10", "100", "10", "100"}, values(t, loaded, "N"))
}

func TestAddDuplicateVariableLeavesStoreIntact(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick"}))

	err := st.Add("ALGO", []string{"merge"})
	assert.Equal(t, ErrCodeDuplicateVariable, CodeOf(err))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"quick"}, values(t, loaded, "ALGO"))
}

func TestAddRequiresValues(t *testing.T) {
	st := newStore(t)
	assert.Equal(t, ErrCodeEmptySet, CodeOf(st.Add("A", nil)))
}

func TestAppendKeepsExistingAndAppendsValueMajor(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick", "merge"}))
	require.NoError(t, st.Add("N", []string{"10"}))
	// current: (quick,10) (merge,10)

	require.NoError(t, st.Append("N", []string{"100", "1000"}))

	loaded, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, 6, loaded.Len())
	assert.Equal(t, []string{"quick", "merge", "quick", "merge", "quick", "merge"},
		values(t, loaded, "ALGO"))
	assert.Equal(t, []string{"10", "10", "100", "100", "1000", "1000"},
		values(t, loaded, "N"))
}

func TestAppendManyValuesOverWideEnvironments(t *testing.T) {
	st := newStore(t)
	// three remaining variables per projection, so appended branches for
	// the same base must each keep their own value
	require.NoError(t, st.Add("A", []string{"1"}))
	require.NoError(t, st.Add("B", []string{"1"}))
	require.NoError(t, st.Add("C", []string{"1"}))
	require.NoError(t, st.Add("D", []string{"x"}))

	require.NoError(t, st.Append("D", []string{"y", "z"}))

	loaded, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())
	assert.Equal(t, []string{"x", "y", "z"}, values(t, loaded, "D"))
	for _, name := range []string{"A", "B", "C"} {
		assert.Equal(t, []string{"1", "1", "1"}, values(t, loaded, name))
	}
}

func TestAppendUnknownVariable(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("A", []string{"1"}))
	assert.Equal(t, ErrCodeUnknownVariable, CodeOf(st.Append("B", []string{"2"})))
}

func TestRemoveVariableKeepsDuplicates(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick", "merge"}))
	require.NoError(t, st.Add("N", []string{"10", "100"}))

	require.NoError(t, st.Remove("N", nil))

	loaded, err := st.Load()
	require.NoError(t, err)
	// duplicate environments survive, the set is not deduplicated
	assert.Equal(t, []string{"quick", "quick", "merge", "merge"}, values(t, loaded, "ALGO"))
	assert.False(t, loaded.HasVariable("N"))

	// the variable is gone now, a second remove fails
	assert.Equal(t, ErrCodeUnknownVariable, CodeOf(st.Remove("N", nil)))
}

func TestRemoveValuesDropsMatchingEnvironments(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick", "merge", "heap"}))
	require.NoError(t, st.Add("N", []string{"10", "100"}))

	require.NoError(t, st.Remove("ALGO", []string{"merge"}))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "quick", "heap", "heap"}, values(t, loaded, "ALGO"))
}

func TestRemoveUnknownValueLeavesStoreIntact(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Add("ALGO", []string{"quick"}))

	err := st.Remove("ALGO", []string{"quick", "bogus"})
	assert.Equal(t, ErrCodeUnknownValue, CodeOf(err))

	loaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestFilesIgnoresNonEnvEntries(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Write(mustFromList(t, "A", "1")))
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(st.Dir(), "sub.env"), 0o755))

	assert.Equal(t, []string{"0.env"}, fileNames(t, st))
}
