package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/veritas/internal/config"
	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/provider"
	"github.com/knowledge-engine/veritas/internal/storage"
)

const essay = "Photosynthesis is the process by which green plants and some other organisms use sunlight " +
	"to synthesize foods from carbon dioxide and water. Photosynthesis in plants generally involves the " +
	"green pigment chlorophyll and generates oxygen as a byproduct. The light dependent reactions take " +
	"place in the thylakoid membranes while the Calvin cycle runs in the stroma of the chloroplast. " +
	"Scientists have studied these pathways for more than a century and continue to discover details " +
	"about how energy is captured, stored and released inside living cells across every ecosystem on the planet."

func setupEngine(t *testing.T, searcher provider.SearchProvider) {
	t.Helper()
	c := config.Load()
	c.Matching.DefaultProfile = config.ProfileStandard
	c.Matching.ProfilesFile = ""
	c.Web.FetchPages = false

	e, err := engine.NewEngine(c, logrus.New().WithField("test", "cli"), storage.NewMemoryStorage(), searcher)
	require.NoError(t, err)
	eng, ownEngine = e, false

	t.Cleanup(func() {
		eng = nil
		compareProfile, compareJSON, compareHighlight = "", false, false
		libraryAddName, libraryJSON = "", false
		webScanMode, webScanProfile, webScanJSON = config.ModeQuick, "", false
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestProfilesCmd(t *testing.T) {
	setupEngine(t, nil)

	out, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "* standard")
	assert.Contains(t, out, "  strict")
	assert.Contains(t, out, "threshold 0.75")
}

func TestLibraryCmds(t *testing.T) {
	setupEngine(t, nil)
	path := writeFile(t, "essay.txt", essay)

	out, err := execute(t, "library", "add", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Added essay.txt (txt, 90 words)")

	out, err = execute(t, "library", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "1 documents:")
	assert.Contains(t, out, "essay.txt")

	out, err = execute(t, "library", "remove", "essay.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed essay.txt")

	out, err = execute(t, "library", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Library is empty.")

	_, err = execute(t, "library", "remove", "essay.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLibraryAdd_NameOverride(t *testing.T) {
	setupEngine(t, nil)
	path := writeFile(t, "draft.txt", essay)

	_, err := execute(t, "library", "add", "--name", "biology", path)
	require.NoError(t, err)

	docs, err := eng.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "biology", docs[0].Name)

	_, err = execute(t, "library", "add", "--name", "x", path, path)
	assert.Error(t, err)
}

func TestLibraryAdd_ReportsFailures(t *testing.T) {
	setupEngine(t, nil)
	good := writeFile(t, "essay.txt", essay)
	empty := writeFile(t, "empty.txt", "   ")

	out, err := execute(t, "library", "add", good, empty)
	assert.Error(t, err)
	assert.Contains(t, out, "Added essay.txt")
	assert.Contains(t, out, "empty.txt")
}

func TestCompareCmd(t *testing.T) {
	setupEngine(t, nil)
	path := writeFile(t, "essay.txt", essay)

	_, err := execute(t, "compare", path)
	assert.ErrorIs(t, err, engine.ErrEmptyLibrary)

	_, err = execute(t, "library", "add", path)
	require.NoError(t, err)

	out, err := execute(t, "compare", "--highlight", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Global similarity: 100.0% - High similarity")
	assert.Contains(t, out, "Marked text:")
	assert.Contains(t, out, "⟦")
}

func TestCompareCmd_JSONFromStdin(t *testing.T) {
	setupEngine(t, nil)
	_, err := eng.AddText("essay.txt", essay)
	require.NoError(t, err)

	rootCmd.SetIn(strings.NewReader(essay))
	out, err := execute(t, "compare", "--json", "-")
	require.NoError(t, err)

	var rep struct {
		Name             string  `json:"name"`
		Profile          string  `json:"profile"`
		GlobalSimilarity float64 `json:"global_similarity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "stdin.txt", rep.Name)
	assert.Equal(t, "standard", rep.Profile)
	assert.InDelta(t, 1.0, rep.GlobalSimilarity, 1e-9)
}

func TestCompareCmd_UnknownProfile(t *testing.T) {
	setupEngine(t, nil)
	_, err := eng.AddText("essay.txt", essay)
	require.NoError(t, err)

	_, err = execute(t, "compare", "--profile", "lenient", writeFile(t, "a.txt", essay))
	assert.ErrorIs(t, err, engine.ErrUnknownProfile)
}

func TestWebScanCmd_Unavailable(t *testing.T) {
	setupEngine(t, nil)

	_, err := execute(t, "web-scan", writeFile(t, "essay.txt", essay))
	assert.ErrorIs(t, err, engine.ErrWebScanUnavailable)
}

func TestWebScanCmd(t *testing.T) {
	setupEngine(t, provider.NewStaticProvider([]provider.Result{
		{Title: "Biology notes", Link: "https://bio.example/notes", Snippet: strings.Join(strings.Fields(essay)[:30], " ")},
		{Title: "Cooking", Link: "https://food.example/bread", Snippet: "knead dough gently, rest overnight before baking loaves"},
	}))

	out, err := execute(t, "web-scan", "--mode", "deep", writeFile(t, "essay.txt", essay))
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:      deep")
	assert.Contains(t, out, "https://bio.example/notes")
	assert.NotContains(t, out, "https://food.example/bread")
}
