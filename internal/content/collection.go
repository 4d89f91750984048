package content

import (
	"slices"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

// Collection is the insertion-ordered set of items for one build. Original
// paths are unique.
type Collection struct {
	items      []*Item
	byOriginal map[string]*Item
}

// NewCollection creates a collection holding items in order.
func NewCollection(items ...*Item) (*Collection, error) {
	c := &Collection{byOriginal: make(map[string]*Item, len(items))}
	for _, it := range items {
		if err := c.Add(it); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends an item. A second item with the same original path is rejected.
func (c *Collection) Add(it *Item) error {
	if c.byOriginal == nil {
		c.byOriginal = map[string]*Item{}
	}
	if _, dup := c.byOriginal[it.Original()]; dup {
		return errors.IdentityError("duplicate original path").
			WithContext("original", it.Original()).
			Build()
	}
	c.items = append(c.items, it)
	c.byOriginal[it.Original()] = it
	return nil
}

// Get looks an item up by original path.
func (c *Collection) Get(original string) (*Item, bool) {
	it, ok := c.byOriginal[original]
	return it, ok
}

// Remove drops the item with the given original path.
func (c *Collection) Remove(original string) bool {
	if _, ok := c.byOriginal[original]; !ok {
		return false
	}
	delete(c.byOriginal, original)
	c.items = slices.DeleteFunc(c.items, func(it *Item) bool { return it.Original() == original })
	return true
}

// RemoveFunc drops every item for which drop returns true and returns the count.
func (c *Collection) RemoveFunc(drop func(*Item) bool) int {
	before := len(c.items)
	c.items = slices.DeleteFunc(c.items, func(it *Item) bool {
		if drop(it) {
			delete(c.byOriginal, it.Original())
			return true
		}
		return false
	})
	return before - len(c.items)
}

// RemoveSynthetic drops every build-generated item.
func (c *Collection) RemoveSynthetic() int {
	return c.RemoveFunc(func(it *Item) bool { return it.Synthetic })
}

// Items returns the items in insertion order. The slice is a copy; the items are shared.
func (c *Collection) Items() []*Item {
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection) Len() int { return len(c.items) }

// ByCurrent indexes items by current path. Duplicate current paths keep the
// first item.
func (c *Collection) ByCurrent() map[string]*Item {
	idx := make(map[string]*Item, len(c.items))
	for _, it := range c.items {
		if _, ok := idx[it.Current]; !ok {
			idx[it.Current] = it
		}
	}
	return idx
}
