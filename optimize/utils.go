package optimize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReadFloats parses a whitespace-separated list of numbers, used for
// reading warm-start vectors from files. NaN and infinities are
// rejected since no parameter may start there.
func ReadFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	result := make([]float64, 0, len(fields))
	for _, field := range fields {
		x, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("optimize: non-finite value %q in vector", field)
		}
		result = append(result, x)
	}
	return result, nil
}
