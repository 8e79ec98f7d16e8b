// Package util holds small helpers for turning data into natural speech.
package util

import "fmt"

// JoinNatural joins parts for speech: "a", "a and b", "a, b, and c".
func JoinNatural(parts []string, conj string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " " + conj + " " + parts[1]
	}
	out := ""
	for i, p := range parts {
		switch {
		case i == len(parts)-1:
			out += ", " + conj + " " + p
		case i == 0:
			out = p
		default:
			out += ", " + p
		}
	}
	return out
}

// Plural appends "s" to noun when n != 1.
func Plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

// CountNoun formats "1 timer" / "3 timers".
func CountNoun(n int, noun string) string {
	return fmt.Sprintf("%d %s", n, Plural(n, noun))
}
