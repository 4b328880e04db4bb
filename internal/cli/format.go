package cli

import (
	"fmt"
	"math"
)

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	if word == "entry" {
		return fmt.Sprintf("%d entries", n)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func percent(f float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(f*100)))
}

func signed(f float64) string {
	return fmt.Sprintf("%+.1f", f)
}
