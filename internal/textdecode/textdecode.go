// Package textdecode turns raw file bytes into valid UTF-8 text without failing on bad input.
package textdecode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Policy names how ill-formed UTF-8 sequences are handled.
type Policy string

const (
	// PolicyIgnore drops ill-formed bytes.
	PolicyIgnore Policy = "ignore"
	// PolicyReplace substitutes U+FFFD for each ill-formed sequence.
	PolicyReplace Policy = "replace"

	// DefaultPolicy silently drops ill-formed bytes.
	DefaultPolicy = PolicyIgnore

	unknownPolicyMessageFormat = "unknown decode policy %q (expected %s or %s)"
)

// ParsePolicy converts a user supplied name into a Policy. An empty name yields DefaultPolicy.
func ParsePolicy(name string) (Policy, error) {
	normalized := Policy(strings.ToLower(strings.TrimSpace(name)))
	switch normalized {
	case "":
		return DefaultPolicy, nil
	case PolicyIgnore, PolicyReplace:
		return normalized, nil
	default:
		return "", fmt.Errorf(unknownPolicyMessageFormat, name, PolicyIgnore, PolicyReplace)
	}
}

// Transformer returns a fresh transformer implementing the policy.
func (policy Policy) Transformer() transform.Transformer {
	if policy == PolicyReplace {
		return runes.ReplaceIllFormed()
	}
	return dropIllFormed{}
}

// Decode returns data as valid UTF-8 according to the policy. Valid input is returned unchanged.
func Decode(policy Policy, data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, _, transformError := transform.String(policy.Transformer(), string(data))
	if transformError != nil {
		return "", transformError
	}
	return decoded, nil
}

// dropIllFormed copies valid UTF-8 and discards every byte that does not start a valid rune.
type dropIllFormed struct{}

func (dropIllFormed) Reset() {}

func (dropIllFormed) Transform(destination, source []byte, atEOF bool) (int, int, error) {
	destinationIndex, sourceIndex := 0, 0
	for sourceIndex < len(source) {
		if source[sourceIndex] < utf8.RuneSelf {
			if destinationIndex >= len(destination) {
				return destinationIndex, sourceIndex, transform.ErrShortDst
			}
			destination[destinationIndex] = source[sourceIndex]
			destinationIndex++
			sourceIndex++
			continue
		}
		decodedRune, size := utf8.DecodeRune(source[sourceIndex:])
		if decodedRune == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(source[sourceIndex:]) {
				return destinationIndex, sourceIndex, transform.ErrShortSrc
			}
			sourceIndex++
			continue
		}
		if destinationIndex+size > len(destination) {
			return destinationIndex, sourceIndex, transform.ErrShortDst
		}
		destinationIndex += copy(destination[destinationIndex:], source[sourceIndex:sourceIndex+size])
		sourceIndex += size
	}
	return destinationIndex, sourceIndex, nil
}
