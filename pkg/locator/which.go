package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by LookPathIn when no directory holds an executable name.
var ErrNotFound = errors.New("executable file not found in search path")

// LookPathIn searches pathList the way `which` does, without consulting the
// process environment. Names containing a separator are checked directly.
func LookPathIn(name, pathList string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if IsExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, name)
		if IsExecutable(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}
