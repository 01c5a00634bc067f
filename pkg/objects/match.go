package objects

import "strings"

// minTokenLen is the shortest sample word that counts toward a match.
const minTokenLen = 4

var stopWords = map[string]bool{
	"this":    true,
	"that":    true,
	"with":    true,
	"there":   true,
	"have":    true,
	"from":    true,
	"some":    true,
	"what":    true,
	"which":   true,
	"image":   true,
	"picture": true,
	"appears": true,
	"looks":   true,
	"like":    true,
	"seems":   true,
	"very":    true,
	"also":    true,
	"about":   true,
}

// Match returns the first object, in insertion order, with a sample that
// shares two significant words with description, or one word when the
// object's name also appears in description.
func (s *Store) Match(description string) (string, bool) {
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		named := strings.Contains(desc, name)
		for _, sample := range s.samples[name] {
			n := overlap(sample, desc)
			if n >= 2 || (n >= 1 && named) {
				return name, true
			}
		}
	}
	return "", false
}

// overlap counts the significant words of sample found in desc. desc must
// already be lower case.
func overlap(sample, desc string) int {
	n := 0
	for _, tok := range strings.Fields(strings.ToLower(sample)) {
		if len(tok) < minTokenLen || stopWords[tok] {
			continue
		}
		if strings.Contains(desc, tok) {
			n++
		}
	}
	return n
}
