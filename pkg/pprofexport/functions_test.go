package pprofexport

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func str(s string) *string {
	return &s
}

func TestFunctionIdentity(t *testing.T) {
	strtab := newStringTable()
	funcs := newFunctionTable(strtab, nil)

	id := funcs.GetID("chrome.dll", "main", nil)
	require.NotZero(t, id)

	// Repeat registrations return the same id even with a different
	// source file: the first writer wins.
	require.Equal(t, id, funcs.GetID("chrome.dll", "main", nil))
	require.Equal(t, id, funcs.GetID("chrome.dll", "main", str(`C:\src\main.cc`)))

	require.NotEqual(t, id, funcs.GetID("chrome.dll", "helper", nil))
	require.NotEqual(t, id, funcs.GetID("other.dll", "main", nil))

	record := funcs.funcs[id-1]
	require.Equal(t, "main", strtab.Lookup(record.name))
	require.Equal(t, "chrome.dll!main", strtab.Lookup(record.systemName))
	require.Equal(t, "chrome.dll", strtab.Lookup(record.filename))
}

func TestFunctionNaming(t *testing.T) {
	for _, test := range []struct {
		name string

		image    string
		function string
		source   *string
		pattern  string

		expectedName     string
		expectedFilename string
	}{{
		name:             "plain",
		image:            "chrome.dll",
		function:         "main",
		expectedName:     "main",
		expectedFilename: "chrome.dll",
	}, {
		name:             "empty function name",
		image:            "chrome.dll",
		function:         "",
		expectedName:     "chrome.dll!",
		expectedFilename: "chrome.dll",
	}, {
		name:             "backslashes normalized",
		image:            "chrome.dll",
		function:         "main",
		source:           str(`C:\src\chrome\main.cc`),
		expectedName:     "main",
		expectedFilename: "C:/src/chrome/main.cc",
	}, {
		name:             "prefix stripped case-insensitively",
		image:            "chrome.dll",
		function:         "main",
		source:           str(`C:\Src\Chrome\main.cc`),
		pattern:          `c:/src/`,
		expectedName:     "main",
		expectedFilename: "Chrome/main.cc",
	}, {
		name:             "pattern only matches the path start",
		image:            "chrome.dll",
		function:         "main",
		source:           str(`D:\out\c:\src\main.cc`),
		pattern:          `c:/src/`,
		expectedName:     "main",
		expectedFilename: "D:/out/c:/src/main.cc",
	}} {
		t.Run(test.name, func(t *testing.T) {
			var stripSourcePrefix *regexp.Regexp
			if test.pattern != "" {
				stripSourcePrefix = regexp.MustCompile("^(?i)(?:" + test.pattern + ")")
			}

			strtab := newStringTable()
			funcs := newFunctionTable(strtab, stripSourcePrefix)

			id := funcs.GetID(test.image, test.function, test.source)
			record := funcs.funcs[id-1]
			require.Equal(t, test.expectedName, strtab.Lookup(record.name))
			require.Equal(t, test.image+"!"+test.function, strtab.Lookup(record.systemName))
			require.Equal(t, test.expectedFilename, strtab.Lookup(record.filename))
		})
	}
}
