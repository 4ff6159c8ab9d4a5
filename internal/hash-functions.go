package internal

// StringHash computes a hash for a symbol's name, used by the symbol
// table in utils/symbol.go (symbolName.Hash) to intern names.
func StringHash(s string) (hash uint64) {
	// DJBX33A
	hash = 5381
	for _, b := range s {
		hash = ((hash << 5) + hash) + uint64(b)
	}
	return
}
