package engine

// ColumnStore holds business rows in Struct-of-Arrays format for speed
type ColumnStore struct {
	// Dictionary Encoded IDs (0..N)
	TypeIDs  []int32
	StateIDs []int32

	// Dictionaries (ID -> String)
	TypeDict  []string
	StateDict []string
}

func (cs *ColumnStore) Rows() int { return len(cs.StateIDs) }
