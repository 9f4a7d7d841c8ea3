package shape

import (
	"math"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of significant digits used by Format.
const DefaultPrecision = 6

// Format renders d as "hull_volume ellipsoid_volume axis0 axis1 axis2",
// space separated, with no trailing newline. Each value is printed with
// precision significant digits in the shortest of fixed or exponent form.
// A precision below 1 selects DefaultPrecision.
func Format(d *Descriptors, precision int) string {
	if precision < 1 {
		precision = DefaultPrecision
	}
	vals := []float64{d.HullVolume, d.EllipsoidVolume, d.SemiAxes[0], d.SemiAxes[1], d.SemiAxes[2]}
	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = formatValue(v, precision)
	}
	return strings.Join(fields, " ")
}

func formatValue(v float64, precision int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', precision, 64)
}
