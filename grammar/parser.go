package grammar

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	lru "github.com/hashicorp/golang-lru"
)

const cacheSize = 4096

var (
	descriptorParser = participle.MustBuild[Descriptor](
		participle.Lexer(DescriptorLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(4),
	)

	// Parsed descriptors are shared between compilation units, which may be
	// analyzed concurrently; the cache is safe for concurrent use.
	descriptorCache = mustCache(cacheSize)
)

func mustCache(size int) *lru.Cache {
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse parses a type descriptor string. The result may be shared with other
// callers and must not be modified.
func Parse(text string) (*Descriptor, error) {
	text = strings.TrimSpace(text)
	if cached, ok := descriptorCache.Get(text); ok {
		return cached.(*Descriptor), nil
	}
	d, err := descriptorParser.ParseString("", text)
	if err != nil {
		return nil, err
	}
	descriptorCache.Add(text, d)
	return d, nil
}

// CacheLen reports how many descriptors are cached.
func CacheLen() int {
	return descriptorCache.Len()
}
