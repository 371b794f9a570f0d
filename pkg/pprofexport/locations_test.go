package pprofexport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/etwtopprof/pkg/etw"
)

func u64(v uint64) *uint64 {
	return &v
}

func newTestLocationTable(includeInlined bool) (*stringTable, *functionTable, *locationTable) {
	strtab := newStringTable()
	funcs := newFunctionTable(strtab, nil)
	return strtab, funcs, newLocationTable(funcs, includeInlined)
}

func TestLocationIdentity(t *testing.T) {
	_, _, locs := newTestLocationTable(false)

	sym := &etw.Symbol{
		Image:           "chrome.dll",
		ImagePath:       `C:\Program Files\chrome.dll`,
		FunctionName:    "main",
		FunctionAddress: u64(0x1000),
	}

	id := locs.GetResolvedID(1, sym)
	require.Equal(t, id, locs.GetResolvedID(1, sym))

	// Any differing key component yields a distinct location.
	require.NotEqual(t, id, locs.GetResolvedID(2, sym))

	other := *sym
	other.FunctionAddress = u64(0x2000)
	require.NotEqual(t, id, locs.GetResolvedID(1, &other))

	// An absent address is not the same key as address zero.
	zero := *sym
	zero.FunctionAddress = u64(0)
	absent := *sym
	absent.FunctionAddress = nil
	require.NotEqual(t, locs.GetResolvedID(1, &zero), locs.GetResolvedID(1, &absent))
}

func TestLocationInlineLines(t *testing.T) {
	strtab, funcs, locs := newTestLocationTable(true)

	sym := &etw.Symbol{
		Image:                "chrome.dll",
		FunctionName:         "main",
		InlinedFunctionNames: []string{"inner", "outer"},
		SourceFileName:       `C:\src\main.cc`,
		SourceLineNumber:     42,
	}

	id := locs.GetResolvedID(1, sym)
	record := locs.locs[id-1]
	require.Len(t, record.lines, 3)

	names := make([]string, 0, len(record.lines))
	for _, line := range record.lines {
		names = append(names, strtab.Lookup(funcs.funcs[line.functionID-1].name))
	}
	require.Equal(t, []string{"inner", "outer", "main"}, names)

	// Only the frame's own line carries a source line number; inlined
	// functions fall back to the image name as their filename.
	require.Equal(t, int64(0), record.lines[0].line)
	require.Equal(t, int64(0), record.lines[1].line)
	require.Equal(t, int64(42), record.lines[2].line)
	require.Equal(t, "chrome.dll", strtab.Lookup(funcs.funcs[record.lines[0].functionID-1].filename))
	require.Equal(t, "C:/src/main.cc", strtab.Lookup(funcs.funcs[record.lines[2].functionID-1].filename))
}

func TestLocationInlineLinesDisabled(t *testing.T) {
	_, _, locs := newTestLocationTable(false)

	sym := &etw.Symbol{
		Image:                "chrome.dll",
		FunctionName:         "main",
		InlinedFunctionNames: []string{"inner"},
	}

	id := locs.GetResolvedID(1, sym)
	require.Len(t, locs.locs[id-1].lines, 1)
}

func TestPseudoLocation(t *testing.T) {
	strtab, funcs, locs := newTestLocationTable(false)

	id := locs.GetPseudoID(4, "foo.dll", nil, "<unknown>")
	require.Equal(t, id, locs.GetPseudoID(4, "foo.dll", nil, "<unknown>"))

	record := locs.locs[id-1]
	require.Len(t, record.lines, 1)

	fn := funcs.funcs[record.lines[0].functionID-1]
	require.Equal(t, "<unknown>", strtab.Lookup(fn.name))
	require.Equal(t, "foo.dll", strtab.Lookup(fn.filename))

	withAddress := locs.GetPseudoID(4, "foo.dll", u64(0xdead), "<unknown>")
	require.NotEqual(t, id, withAddress)
	require.Equal(t, withAddress, locs.GetPseudoID(4, "foo.dll", u64(0xdead), "<unknown>"))
}
