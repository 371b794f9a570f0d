package pprofexport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringTable(t *testing.T) {
	strtab := newStringTable()

	require.Equal(t, int64(0), strtab.GetID(""))

	id := strtab.GetID("chrome.exe")
	require.Equal(t, id, strtab.GetID("chrome.exe"))
	require.NotEqual(t, id, strtab.GetID("notepad.exe"))

	// Ids are stable once assigned.
	require.Equal(t, int64(0), strtab.GetID(""))
	require.Equal(t, "chrome.exe", strtab.Lookup(id))
}
