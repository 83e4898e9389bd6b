package types

const (
	// ResultTreeMaxLevels is the maximum number of levels of the result
	// commitment tree.
	ResultTreeMaxLevels = 72
	// ResultTreeKeyLen is the length in bytes of a result tree key: one
	// leaf type byte followed by an 8-byte big-endian id.
	ResultTreeKeyLen = ResultTreeMaxLevels / 8
)
