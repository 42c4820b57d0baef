package cache

import (
	"fmt"
	"strings"
)

// Pattern selects keys for invalidation.
//
// A namespace pattern "plants" matches the key "plants" and every key that
// begins with "plants:". A trailing '*' ("plant*") makes it a raw prefix
// match. "*" alone matches every key.
type Pattern struct {
	prefix string
	raw    bool
}

// MatchAll matches every key in the store's keyspace.
var MatchAll = Pattern{raw: true}

// ParsePattern validates and parses an invalidation pattern.
func ParsePattern(pattern string) (Pattern, error) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidNamespace)
	}
	if before, ok := strings.CutSuffix(p, "*"); ok {
		if strings.Contains(before, "*") {
			return Pattern{}, fmt.Errorf("%w: only a trailing '*' is supported in %q", ErrInvalidNamespace, pattern)
		}
		return Pattern{prefix: before, raw: true}, nil
	}
	if strings.Contains(p, "*") {
		return Pattern{}, fmt.Errorf("%w: only a trailing '*' is supported in %q", ErrInvalidNamespace, pattern)
	}
	return Pattern{prefix: p}, nil
}

// NamespacePattern matches exactly one namespace and everything beneath it.
func NamespacePattern(namespace string) (Pattern, error) {
	if err := validateNamespace(namespace); err != nil {
		return Pattern{}, err
	}
	return Pattern{prefix: namespace}, nil
}

// Match reports whether key is selected by the pattern.
func (p Pattern) Match(key string) bool {
	if p.raw {
		return strings.HasPrefix(key, p.prefix)
	}
	return key == p.prefix || strings.HasPrefix(key, p.prefix+":")
}

// ScanPrefix is the literal prefix every matching key starts with.
// Stores scan by it natively and filter the results with Match.
func (p Pattern) ScanPrefix() string {
	return p.prefix
}

func (p Pattern) String() string {
	if p.raw {
		return p.prefix + "*"
	}
	return p.prefix
}
