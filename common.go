package loxx

import (
	"fmt"
	"math"
	"strings"
)

const Version = "0.1.0"

const (
	eofByte byte = 0

	uint8Max  uint8  = math.MaxUint8
	uint16Max uint16 = math.MaxUint16

	uint8Count int = math.MaxUint8 + 1
)

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// cover centers str between two runs of c, each about width-len(str)/2-1
// long, so the whole rule is about 2*width wide, e.g. cover("main", 5, "=")
// is "== main ==".
func cover(str string, width int, c string) string {
	left := (width - len(str)/2) - 1
	var right int
	if len(str)%2 == 0 {
		right = left
	} else {
		right = left + 1
	}
	return fmt.Sprintf(
		"%s %s %s",
		multiplyString(c, left),
		str,
		multiplyString(c, right),
	)
}

func multiplyString(str string, m int) string {
	var res strings.Builder
	for i := 0; i < m; i++ {
		res.WriteString(str)
	}
	return res.String()
}
