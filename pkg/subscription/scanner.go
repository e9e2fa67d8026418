package subscription

import (
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"
)

// objectPattern matches on-chain object identifiers embedded anywhere in a
// serialized payload: a two letter type prefix, an underscore, then 38-60
// base58 characters. Matching is purely lexical; an identifier that refers
// to nothing simply matches no subscription.
var objectPattern = regexp.MustCompile(`[a-z][a-z]_[1-9A-HJ-NP-Za-km-z]{38,60}`)

// ScanObjects returns every distinct object identifier found in text.
// Matches are non-overlapping and deduplicated.
func ScanObjects(text string) mapset.Set[string] {
	objects := mapset.NewThreadUnsafeSet[string]()
	for _, match := range objectPattern.FindAllString(text, -1) {
		objects.Add(match)
	}
	return objects
}
