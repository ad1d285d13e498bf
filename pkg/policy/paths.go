package policy

import (
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"
)

var readPaths = &pathCache{compiled: make(map[string]*jmespath.JMESPath)}

// pathCache holds compiled read path expressions
type pathCache struct {
	compiled map[string]*jmespath.JMESPath
	mu       sync.RWMutex
}

func (c *pathCache) get(path string) (*jmespath.JMESPath, error) {
	c.mu.RLock()
	if compiled, ok := c.compiled[path]; ok {
		c.mu.RUnlock()
		return compiled, nil
	}
	c.mu.RUnlock()

	compiled, err := jmespath.Compile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[path] = compiled
	c.mu.Unlock()
	return compiled, nil
}

// ReadPath resolves a read path against a property map.
//
// A property named exactly like the path wins. Otherwise the path is a JMESPath expression, so
// "address.city" walks nested maps and "tags[*].name" projects a list of option objects. Paths
// that do not compile (keys with spaces such as "Last Contacted.start") fall back to a plain
// dotted walk. A null result counts as absent.
func ReadPath(properties map[string]any, path string) (any, bool) {
	if properties == nil || path == "" {
		return nil, false
	}
	if v, ok := properties[path]; ok {
		return v, true
	}

	compiled, err := readPaths.get(path)
	if err != nil {
		return walkPath(properties, path)
	}
	v, err := compiled.Search(properties)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func walkPath(properties map[string]any, path string) (any, bool) {
	var current any = properties
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
