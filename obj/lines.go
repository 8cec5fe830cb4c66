package obj

import (
	"strconv"
	"strings"
)

// eachLine calls fn with the whitespace separated fields of every non-blank,
// non-comment line. Errors of kind *Error get the line number attached.
func eachLine(text string, fn func(line int, fields []string) error) error {
	for n, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := fn(n+1, fields); err != nil {
			if e, ok := err.(*Error); ok && e.Line == 0 {
				e.Line = n + 1
			}
			return err
		}
	}
	return nil
}

func parseFloat(directive, s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, errorf(ErrFetch, directive, s, nil)
	}
	return float32(v), nil
}

func parseFloats(directive string, args []string) ([]float32, error) {
	values := make([]float32, len(args))
	for i, s := range args {
		v, err := parseFloat(directive, s)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
