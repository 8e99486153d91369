package registry

import (
	"fmt"
	"strings"

	"github.com/charliek/logan/internal/domain"
)

// OwnerID extracts the owner identifier embedded in a log file path: the
// run of word characters ([A-Za-z0-9_]) immediately before the first
// occurrence of suffix. Occurrences with no word characters in front are
// passed over in favour of later ones.
func OwnerID(path, suffix string) (string, error) {
	if suffix == "" {
		return "", fmt.Errorf("%w: empty suffix", domain.ErrUnresolvableOwner)
	}

	offset := 0
	for {
		idx := strings.Index(path[offset:], suffix)
		if idx < 0 {
			return "", fmt.Errorf("%w: no identifier in %s", domain.ErrUnresolvableOwner, path)
		}
		end := offset + idx
		start := end
		for start > 0 && isWordChar(path[start-1]) {
			start--
		}
		if start < end {
			return path[start:end], nil
		}
		offset = end + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
