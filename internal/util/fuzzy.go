package util

import (
	"regexp"
	"sort"
	"strings"
)

var reNonToken = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize lower-cases the input and splits it on every non-letter,
// non-digit run.
func Tokenize(input string) []string {
	lower := strings.ToLower(input)
	parts := reNonToken.Split(lower, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TokenSort normalizes a string into its sorted token form, the
// order-insensitive key used for similarity scoring.
func TokenSort(input string) string {
	tokens := Tokenize(input)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio scores the similarity of two strings as 0..100 based on their
// longest common subsequence.
func Ratio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if a == b {
		return 100
	}
	common := lcsLength(ra, rb)
	return int((200*float64(common))/float64(len(ra)+len(rb)) + 0.5)
}

// PartialRatio slides the shorter string over the longer one and returns
// the best window score, so a good substring alignment scores high even
// when the surrounding text differs.
func PartialRatio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	short, long := ra, rb
	if len(short) > len(long) {
		short, long = long, short
	}

	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		score := Ratio(string(short), string(long[i:i+len(short)]))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

// PartialTokenSortRatio is the matcher's scoring function: both strings
// are reduced to their sorted token form, then partially aligned. The
// result is order-insensitive and tolerant of extra surrounding text.
func PartialTokenSortRatio(a, b string) int {
	return PartialRatio(TokenSort(a), TokenSort(b))
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
