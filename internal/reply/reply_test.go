package reply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsArePopulated(t *testing.T) {
	tpl := Defaults()
	assert.Equal(t, "Siap kak!", tpl.Acknowledgment)
	assert.Contains(t, tpl.TroubleshootSteps, "Restart modem")
	assert.Contains(t, tpl.ComplaintForm, "ID Pelanggan")
	assert.Contains(t, tpl.RetryID, "%s")
	assert.Contains(t, tpl.ConfirmSummary, "%s")
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	tpl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), tpl)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("acknowledgment: \"Oke kak!\"\n"), 0644))

	tpl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Oke kak!", tpl.Acknowledgment)
	assert.Equal(t, Defaults().PendingReport, tpl.PendingReport)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	tpl, err := Load("/nonexistent/replies.yaml")
	assert.Error(t, err)
	assert.Equal(t, Defaults().Acknowledgment, tpl.Acknowledgment)
}
