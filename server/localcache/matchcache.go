// Copyright (C) 2025 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package localcache keeps short-lived in-process results.
package localcache

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultMatchTTL is used when no expiration is configured.
const DefaultMatchTTL = 5 * time.Minute

// MatchResult is the cached outcome of evaluating a request path against one block.
type MatchResult struct {
	LoginProcessing bool
	Logout          bool
	Public          bool
}

// MatchCache caches path evaluations per snapshot version. A new snapshot version never sees entries of an older one.
type MatchCache struct {
	cache *cache.Cache
}

// NewMatchCache returns a MatchCache whose entries expire after ttl. The cleanup interval is twice the ttl.
func NewMatchCache(ttl time.Duration) *MatchCache {
	if ttl <= 0 {
		ttl = DefaultMatchTTL
	}

	return &MatchCache{cache: cache.New(ttl, 2*ttl)}
}

func matchKey(version uint64, block string, path string) string {
	return strconv.FormatUint(version, 10) + "\x00" + block + "\x00" + path
}

// Get returns a cached result.
func (m *MatchCache) Get(version uint64, block string, path string) (MatchResult, bool) {
	if m == nil {
		return MatchResult{}, false
	}

	value, found := m.cache.Get(matchKey(version, block, path))
	if !found {
		return MatchResult{}, false
	}

	result, ok := value.(MatchResult)

	return result, ok
}

// Set stores a result with the default expiration.
func (m *MatchCache) Set(version uint64, block string, path string, result MatchResult) {
	if m == nil {
		return
	}

	m.cache.SetDefault(matchKey(version, block, path), result)
}

// Len returns the number of entries, expired ones included until the next cleanup.
func (m *MatchCache) Len() int {
	if m == nil {
		return 0
	}

	return m.cache.ItemCount()
}

// Flush drops all entries.
func (m *MatchCache) Flush() {
	if m == nil {
		return
	}

	m.cache.Flush()
}
