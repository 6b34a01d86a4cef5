package domain

// BinaryLocation is the resolved absolute path of the node executable.
// The zero value means "not found".
type BinaryLocation string

// Found reports whether a path was resolved.
func (b BinaryLocation) Found() bool { return b != "" }

func (b BinaryLocation) String() string {
	if b == "" {
		return "<not found>"
	}
	return string(b)
}
