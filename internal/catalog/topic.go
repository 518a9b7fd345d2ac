// Package catalog holds the ordered list of review topics an evaluator
// walks through.
//
// A Catalog is loaded once per session and never mutated afterwards. Topic
// identity is the durable TopicID carried by the source record; the
// position in a fetched list only decides display order.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// TopicID durably identifies a topic across sessions and catalog reloads.
type TopicID string

// String returns the raw identifier.
func (id TopicID) String() string { return string(id) }

// Topic is a single review item.
type Topic struct {
	ID       TopicID `json:"id" yaml:"id"`
	Label    string  `json:"label" yaml:"label"`
	Guide    string  `json:"guide,omitempty" yaml:"guide,omitempty"`
	Position int     `json:"position" yaml:"position"`
}

// Catalog is an immutable, ordered set of topics.
type Catalog struct {
	topics  []Topic
	byID    map[TopicID]int
	byLabel map[string]TopicID
}

// New builds a catalog ordered by Position, then by the order given.
// Topics without an ID get one derived from their label. Duplicate IDs and
// empty labels are rejected.
func New(topics []Topic) (*Catalog, error) {
	ordered := make([]Topic, 0, len(topics))
	for _, t := range topics {
		t.Label = strings.TrimSpace(t.Label)
		t.Guide = strings.TrimSpace(t.Guide)
		t.ID = TopicID(strings.TrimSpace(string(t.ID)))
		if t.Label == "" {
			return nil, fmt.Errorf("catalog: topic %q has no label", t.ID)
		}
		if t.ID == "" {
			t.ID = Slug(t.Label)
		}
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	c := &Catalog{
		topics:  ordered,
		byID:    make(map[TopicID]int, len(ordered)),
		byLabel: make(map[string]TopicID, len(ordered)),
	}
	for idx, t := range ordered {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate topic id %q", t.ID)
		}
		c.byID[t.ID] = idx
		if _, dup := c.byLabel[t.Label]; !dup {
			c.byLabel[t.Label] = t.ID
		}
	}
	return c, nil
}

// Empty returns a catalog with no topics.
func Empty() *Catalog {
	return &Catalog{byID: map[TopicID]int{}, byLabel: map[string]TopicID{}}
}

// Len returns the number of topics.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.topics)
}

// Topics returns the topics in catalog order. The slice is a copy.
func (c *Catalog) Topics() []Topic {
	if c == nil {
		return nil
	}
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

// At returns the topic at display index i.
func (c *Catalog) At(i int) (Topic, bool) {
	if c == nil || i < 0 || i >= len(c.topics) {
		return Topic{}, false
	}
	return c.topics[i], true
}

// Lookup finds a topic by ID.
func (c *Catalog) Lookup(id TopicID) (Topic, bool) {
	if c == nil {
		return Topic{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Topic{}, false
	}
	return c.topics[idx], true
}

// IDForLabel maps a label back to its topic. When two topics share a label
// the first in catalog order wins.
func (c *Catalog) IDForLabel(label string) (TopicID, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.byLabel[strings.TrimSpace(label)]
	return id, ok
}
