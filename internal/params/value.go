package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Values holds one value per parameter index. Boolean parameters are stored
// as 0 or 1.
type Values [Count]int

// FormatValue renders v as the radio expects it on the wire: decimal text,
// with booleans as "0" or "1".
func FormatValue(kind Kind, v int) string {
	if kind == KindBool {
		if v != 0 {
			return "1"
		}
		return "0"
	}
	return strconv.Itoa(v)
}

// ParseValue parses wire text for a parameter of the given kind. Surrounding
// whitespace and carriage returns are ignored. Boolean text "1" means true and
// any other text means false, so boolean parsing never fails.
func ParseValue(kind Kind, text string) (int, error) {
	text = strings.TrimSpace(text)
	if kind == KindBool {
		if text == "1" {
			return 1, nil
		}
		return 0, nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, text)
	}
	return v, nil
}

func normalize(kind Kind, v int) int {
	if kind == KindBool && v != 0 {
		return 1
	}
	return v
}
