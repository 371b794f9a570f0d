package pprofexport

// stringTable interns strings into a table of unique entries.
// Slot 0 always holds the empty string.
type stringTable struct {
	ids   map[string]int64
	table []string
}

func newStringTable() *stringTable {
	t := &stringTable{
		ids: make(map[string]int64, 1024),
	}
	t.GetID("")
	return t
}

func (t *stringTable) GetID(s string) int64 {
	if id, ok := t.ids[s]; ok {
		return id
	}

	id := int64(len(t.table))
	t.ids[s] = id
	t.table = append(t.table, s)
	return id
}

func (t *stringTable) Lookup(id int64) string {
	return t.table[id]
}
