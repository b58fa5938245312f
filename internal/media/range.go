package media

import (
	"strconv"
	"strings"

	"podhost/internal/apperr"
)

// byteRange is an inclusive window into a file.
type byteRange struct {
	start, end int64
}

func (r byteRange) length() int64 { return r.end - r.start + 1 }

// parseRange reads the first specifier of a "bytes=" Range header. Further
// comma separated specifiers are ignored. Open ended ranges run to the last
// byte and suffix ranges ("-500") select the tail of the file.
func parseRange(header string, size int64) (byteRange, error) {
	unsatisfiable := apperr.RangeNotSatisfiable("Range not satisfiable")

	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return byteRange{}, unsatisfiable
	}
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	first, last, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return byteRange{}, unsatisfiable
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return byteRange{}, unsatisfiable
		}
		if n > size {
			n = size
		}
		return byteRange{start: size - n, end: size - 1}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return byteRange{}, unsatisfiable
	}
	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return byteRange{}, unsatisfiable
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return byteRange{start: start, end: end}, nil
}
