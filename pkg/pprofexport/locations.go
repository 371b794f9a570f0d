package pprofexport

import (
	"github.com/google/etwtopprof/pkg/etw"
)

// locationKey distinguishes an absent address from a real zero address,
// so "no address" never collides with address 0.
type locationKey struct {
	pid        uint32
	image      string
	address    uint64
	hasAddress bool
	name       string
}

type lineRecord struct {
	functionID uint64
	line       int64
}

type locationRecord struct {
	id    uint64
	lines []lineRecord
}

// locationTable interns call-stack locations. Resolved locations come
// from frames with symbol information and may carry one line per
// inlined function; pseudo locations represent threads, processes and
// unresolvable frames with a single synthetic line.
type locationTable struct {
	functions      *functionTable
	ids            map[locationKey]uint64
	locs           []locationRecord
	includeInlined bool
}

func newLocationTable(functions *functionTable, includeInlined bool) *locationTable {
	return &locationTable{
		functions:      functions,
		ids:            make(map[locationKey]uint64),
		includeInlined: includeInlined,
	}
}

// GetResolvedID interns the location of a frame with a resolved symbol.
func (t *locationTable) GetResolvedID(pid uint32, sym *etw.Symbol) uint64 {
	image := sym.ImagePath
	if image == "" {
		image = sym.Image
	}

	key := locationKey{pid: pid, image: image, name: sym.FunctionName}
	if sym.FunctionAddress != nil {
		key.address, key.hasAddress = *sym.FunctionAddress, true
	}
	if id, ok := t.ids[key]; ok {
		return id
	}

	loc := locationRecord{id: uint64(len(t.locs) + 1)}
	if t.includeInlined {
		for _, inlined := range sym.InlinedFunctionNames {
			loc.lines = append(loc.lines, lineRecord{
				functionID: t.functions.GetID(sym.Image, inlined, nil),
			})
		}
	}

	var source *string
	if sym.SourceFileName != "" {
		source = &sym.SourceFileName
	}
	loc.lines = append(loc.lines, lineRecord{
		functionID: t.functions.GetID(sym.Image, sym.FunctionName, source),
		line:       sym.SourceLineNumber,
	})

	t.ids[key] = loc.id
	t.locs = append(t.locs, loc)
	return loc.id
}

// GetPseudoID interns a synthetic location labeled with label inside
// image (an image or process name).
func (t *locationTable) GetPseudoID(pid uint32, image string, address *uint64, label string) uint64 {
	key := locationKey{pid: pid, image: image, name: label}
	if address != nil {
		key.address, key.hasAddress = *address, true
	}
	if id, ok := t.ids[key]; ok {
		return id
	}

	loc := locationRecord{
		id: uint64(len(t.locs) + 1),
		lines: []lineRecord{{
			functionID: t.functions.GetID(image, label, nil),
		}},
	}

	t.ids[key] = loc.id
	t.locs = append(t.locs, loc)
	return loc.id
}
