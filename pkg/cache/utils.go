package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// GenerateKeyWithParams joins a prefix and its parameters into a cache key,
// one colon-separated segment per parameter.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}

// HashKey folds an arbitrary string, such as a full alert message, into a
// short hex digest usable as a key segment.
func HashKey(key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return strconv.FormatUint(h.Sum64(), 16)
}

// BuildPattern creates a glob matching every key under a prefix.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
