package service

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`(\d+)([wdhms])`)

// ParseDuration разбирает строку вида "1w2d3h4m5s". Единицы могут идти в
// любом порядке и повторяться; строка без единиц невалидна.
func ParseDuration(s string) (time.Duration, error) {
	parts := durationPattern.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: invalid duration %q", ErrValidation, s)
	}

	var total time.Duration
	for _, p := range parts {
		value, err := strconv.ParseInt(p[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid duration %q", ErrValidation, s)
		}
		switch p[2] {
		case "w":
			total += time.Duration(value) * 7 * 24 * time.Hour
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "h":
			total += time.Duration(value) * time.Hour
		case "m":
			total += time.Duration(value) * time.Minute
		case "s":
			total += time.Duration(value) * time.Second
		}
	}
	return total, nil
}
