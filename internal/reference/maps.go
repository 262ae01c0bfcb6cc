package reference

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"tour_match/internal/domain"
)

type entry struct {
	name string
	id   int64
}

// ReferenceMap maps normalized dimension names to identifiers.
// It is never mutated after NewReferenceMap returns.
type ReferenceMap struct {
	entries []entry // sorted by name, then id
	exact   map[string]int64
}

// NewReferenceMap builds a map from dimension rows. When two rows share a
// normalized name the smaller id wins.
func NewReferenceMap(rows []domain.NamedID) *ReferenceMap {
	m := &ReferenceMap{exact: make(map[string]int64, len(rows))}
	for _, r := range rows {
		n := normalize(r.Name)
		if n == "" {
			continue
		}
		if prev, ok := m.exact[n]; ok && prev <= r.ID {
			continue
		}
		m.exact[n] = r.ID
	}
	m.entries = make([]entry, 0, len(m.exact))
	for n, id := range m.exact {
		m.entries = append(m.entries, entry{name: n, id: id})
	}
	sort.Slice(m.entries, func(i, j int) bool {
		if m.entries[i].name != m.entries[j].name {
			return m.entries[i].name < m.entries[j].name
		}
		return m.entries[i].id < m.entries[j].id
	})
	return m
}

func (m *ReferenceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// lookup applies exact match, then the substring fallback in either
// direction. Among substring matches the shortest name wins, then the
// smallest id.
func (m *ReferenceMap) lookup(text string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	q := normalize(text)
	if q == "" {
		return 0, false
	}
	if id, ok := m.exact[q]; ok {
		return id, true
	}
	best := -1
	for i, e := range m.entries {
		if !strings.Contains(e.name, q) && !strings.Contains(q, e.name) {
			continue
		}
		if best < 0 || better(e, m.entries[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return m.entries[best].id, true
}

func (m *ReferenceMap) exactID(text string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.exact[normalize(text)]
	return id, ok
}

func better(a, b entry) bool {
	la, lb := len([]rune(a.name)), len([]rune(b.name))
	if la != lb {
		return la < lb
	}
	return a.id < b.id
}

// Maps holds one ReferenceMap per dimension.
type Maps struct {
	byDim map[domain.Dimension]*ReferenceMap
}

func NewMaps(tables map[domain.Dimension][]domain.NamedID) *Maps {
	ms := &Maps{byDim: make(map[domain.Dimension]*ReferenceMap, len(tables))}
	for dim, rows := range tables {
		ms.byDim[dim] = NewReferenceMap(rows)
	}
	return ms
}

// Load reads every dimension table once. Call it at startup.
func Load(ctx context.Context, src domain.DimensionSource) (*Maps, error) {
	tables := make(map[domain.Dimension][]domain.NamedID, len(domain.Dimensions))
	for _, dim := range domain.Dimensions {
		rows, err := src.LoadDimension(ctx, dim)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", dim, err)
		}
		tables[dim] = rows
		log.Info().Str("dimension", string(dim)).Int("rows", len(rows)).Msg("reference map loaded")
	}
	return NewMaps(tables), nil
}

func (ms *Maps) Get(dim domain.Dimension) *ReferenceMap {
	if ms == nil {
		return nil
	}
	return ms.byDim[dim]
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}
