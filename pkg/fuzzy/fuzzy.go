// Package fuzzy matches free-form model output against a fixed vocabulary.
package fuzzy

import (
	"strings"
	"unicode"
)

// LevenshteinDistance is the rune-level edit distance between the normalized forms of s1 and s2.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(Normalize(s1))
	r2 := []rune(Normalize(s2))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rolling rows are enough.
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// Normalize lowercases s, drops diacritics and punctuation, and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(foldAccent(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tolerance is the edit distance accepted for a candidate of the given length.
func Tolerance(s string) int {
	switch n := len([]rune(Normalize(s))); {
	case n <= 3:
		return 0
	case n <= 6:
		return 1
	default:
		return 2
	}
}

// Closest returns the candidate nearest to got within the candidate's tolerance.
// A tie between two different candidates is no match.
func Closest(candidates []string, got string) (string, bool) {
	if Normalize(got) == "" {
		return "", false
	}

	best, bestDist, tied := "", -1, false
	for _, c := range candidates {
		d := LevenshteinDistance(c, got)
		if d > Tolerance(c) {
			continue
		}
		switch {
		case bestDist < 0 || d < bestDist:
			best, bestDist, tied = c, d, false
		case d == bestDist && !strings.EqualFold(c, best):
			tied = true
		}
	}
	if bestDist < 0 || tied {
		return "", false
	}
	return best, true
}

// foldAccent maps precomposed Latin letters that survive NFD-less input to ASCII.
func foldAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'ả', 'ã', 'ạ', 'ă', 'ắ', 'ằ', 'ẳ', 'ẵ', 'ặ', 'â', 'ấ', 'ầ', 'ẩ', 'ẫ', 'ậ', 'ä', 'å':
		return 'a'
	case 'é', 'è', 'ẻ', 'ẽ', 'ẹ', 'ê', 'ế', 'ề', 'ể', 'ễ', 'ệ', 'ë':
		return 'e'
	case 'í', 'ì', 'ỉ', 'ĩ', 'ị', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ỏ', 'õ', 'ọ', 'ô', 'ố', 'ồ', 'ổ', 'ỗ', 'ộ', 'ơ', 'ớ', 'ờ', 'ở', 'ỡ', 'ợ', 'ö':
		return 'o'
	case 'ú', 'ù', 'ủ', 'ũ', 'ụ', 'ư', 'ứ', 'ừ', 'ử', 'ữ', 'ự', 'û', 'ü':
		return 'u'
	case 'ý', 'ỳ', 'ỷ', 'ỹ', 'ỵ', 'ÿ':
		return 'y'
	case 'đ':
		return 'd'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	default:
		return r
	}
}
