package pprofexport

import (
	"regexp"
	"strings"
)

type functionKey struct {
	image    string
	function string
}

// functionRecord references its textual fields through the string table.
type functionRecord struct {
	id         uint64
	name       int64
	systemName int64
	filename   int64
}

// functionTable interns (image, function name) pairs. Functions are
// identified by name alone: the first registration fixes the filename,
// later registrations with a different source file return the stored id
// unchanged.
type functionTable struct {
	strtab *stringTable
	ids    map[functionKey]uint64
	funcs  []functionRecord

	// Leading match is stripped from normalized source file names.
	// May be nil.
	stripSourcePrefix *regexp.Regexp
}

func newFunctionTable(strtab *stringTable, stripSourcePrefix *regexp.Regexp) *functionTable {
	return &functionTable{
		strtab:            strtab,
		ids:               make(map[functionKey]uint64),
		stripSourcePrefix: stripSourcePrefix,
	}
}

// GetID returns the id of the function named functionName in imageName,
// interning it on first use. A nil sourceFileName falls back to the
// image name for the filename field.
func (t *functionTable) GetID(imageName, functionName string, sourceFileName *string) uint64 {
	key := functionKey{image: imageName, function: functionName}
	if id, ok := t.ids[key]; ok {
		return id
	}

	systemName := imageName + "!" + functionName
	name := functionName
	if name == "" {
		name = systemName
	}

	filename := imageName
	if sourceFileName != nil {
		filename = strings.ReplaceAll(*sourceFileName, `\`, "/")
		if t.stripSourcePrefix != nil {
			filename = t.stripSourcePrefix.ReplaceAllString(filename, "")
		}
	}

	id := uint64(len(t.funcs) + 1)
	t.ids[key] = id
	t.funcs = append(t.funcs, functionRecord{
		id:         id,
		name:       t.strtab.GetID(name),
		systemName: t.strtab.GetID(systemName),
		filename:   t.strtab.GetID(filename),
	})
	return id
}
