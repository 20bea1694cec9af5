//go:build !cgo

package operators

import "strings"

// ContainsToken without cgo falls back to a case-insensitive substring
// check; gojieba's segmentation (contains_cgo.go) is unavailable since it
// binds a C++ library.
func ContainsToken(value, token interface{}) bool {
	s, sok := value.(string)
	t, tok := token.(string)
	if !sok || !tok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(t))
}
