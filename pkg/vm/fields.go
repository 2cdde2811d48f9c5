package vm

// FieldTable interns property names into dense field ids. Ids are assigned
// in order of first use and never reused.
type FieldTable struct {
	names       []string
	nameToIndex map[string]int
}

func NewFieldTable(initialCapacity int) *FieldTable {
	return &FieldTable{
		names:       make([]string, 0, initialCapacity),
		nameToIndex: make(map[string]int, initialCapacity),
	}
}

// Intern returns the id of name, assigning the next one if name is new.
func (t *FieldTable) Intern(name string) int {
	if id, ok := t.nameToIndex[name]; ok {
		return id
	}
	id := len(t.names)
	t.names = append(t.names, name)
	t.nameToIndex[name] = id
	return id
}

// Lookup returns the id of an already interned name.
func (t *FieldTable) Lookup(name string) (int, bool) {
	id, ok := t.nameToIndex[name]
	return id, ok
}

// Name returns the name of id, or "" for an unknown id.
func (t *FieldTable) Name(id int) string {
	if id < 0 || id >= len(t.names) {
		return ""
	}
	return t.names[id]
}

func (t *FieldTable) Size() int { return len(t.names) }

// Names returns a copy of the interned names indexed by id.
func (t *FieldTable) Names() []string {
	result := make([]string, len(t.names))
	copy(result, t.names)
	return result
}
