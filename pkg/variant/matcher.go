package variant

import "strings"

var (
	DefaultPatterns = []string{".text."}
	// Sections allowed to repeat without being variants.
	DefaultIgnore = []string{".text.hot", ".text.unlikely"}
)

// Matcher sorts the sections of variant objects into generation buckets,
// one bucket per slot. A bucket never holds two sections of the same name.
type Matcher struct {
	Patterns []string
	Ignore   []string

	buckets [][]Section
	index   []map[string]Section
	owner   map[Section]int
}

func NewMatcher(patterns, ignore []string) *Matcher {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	if ignore == nil {
		ignore = DefaultIgnore
	}
	return &Matcher{
		Patterns: patterns,
		Ignore:   ignore,
		owner:    make(map[Section]int),
	}
}

func (m *Matcher) Matches(name string) bool {
	for _, ign := range m.Ignore {
		if strings.Contains(name, ign) {
			return false
		}
	}
	for _, pat := range m.Patterns {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

func (m *Matcher) grow(n int) {
	for len(m.buckets) < n {
		m.buckets = append(m.buckets, nil)
		m.index = append(m.index, make(map[string]Section))
	}
}

func (m *Matcher) add(bucket int, sec Section) {
	m.grow(bucket + 1)
	m.buckets[bucket] = append(m.buckets[bucket], sec)
	m.index[bucket][sec.Name()] = sec
	m.owner[sec] = bucket
}

// Record puts sec into a bucket and reports whether it was taken. With
// slot >= 0 the bucket is fixed; otherwise the first bucket that does not
// hold the name yet is used, opening a new one if all of them do.
func (m *Matcher) Record(sec Section, slot int) bool {
	name := sec.Name()
	if !m.Matches(name) {
		return false
	}

	if slot >= 0 {
		m.grow(slot + 1)
		if _, ok := m.index[slot][name]; ok {
			return false
		}
		m.add(slot, sec)
		return true
	}

	for i := range m.buckets {
		if _, ok := m.index[i][name]; !ok {
			m.add(i, sec)
			return true
		}
	}
	m.add(len(m.buckets), sec)
	return true
}

func (m *Matcher) Generations() [][]Section {
	return m.buckets
}

func (m *Matcher) Len() int {
	return len(m.buckets)
}

// Count returns the number of buckets holding a section called name.
func (m *Matcher) Count(name string) int {
	n := 0
	for _, idx := range m.index {
		if _, ok := idx[name]; ok {
			n++
		}
	}
	return n
}

func (m *Matcher) IsMultiVariant(sec Section) bool {
	if _, ok := m.owner[sec]; !ok {
		return false
	}
	return m.Count(sec.Name()) >= 2
}

// MaxSize is the largest size of the section called name over all buckets.
func (m *Matcher) MaxSize(name string) uint64 {
	size := uint64(0)
	for _, idx := range m.index {
		if sec, ok := idx[name]; ok && sec.Size() > size {
			size = sec.Size()
		}
	}
	return size
}

// HasMultiVariant reports whether bucket slot holds a multi-variant section.
func (m *Matcher) HasMultiVariant(slot int) bool {
	if slot < 0 || slot >= len(m.buckets) {
		return false
	}
	for _, sec := range m.buckets[slot] {
		if m.Count(sec.Name()) >= 2 {
			return true
		}
	}
	return false
}

// Owner returns the bucket, and therefore the overlay segment, of sec.
func (m *Matcher) Owner(sec Section) (int, bool) {
	slot, ok := m.owner[sec]
	return slot, ok
}

// prune drops sections that are no longer live from every bucket.
func (m *Matcher) prune() {
	for i, bucket := range m.buckets {
		kept := bucket[:0]
		for _, sec := range bucket {
			if sec.IsLive() {
				kept = append(kept, sec)
				continue
			}
			delete(m.owner, sec)
			if m.index[i][sec.Name()] == sec {
				delete(m.index[i], sec.Name())
			}
		}
		m.buckets[i] = kept
	}
}
