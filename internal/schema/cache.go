package schema

import "context"

// TableLoader loads the non-view tables of one schema.
type TableLoader func(ctx context.Context, schema string) ([]*TableInfo, error)

// Cache holds the non-view tables of each schema, loaded on first use. It is
// never invalidated implicitly: callers Refresh or Invalidate after DDL.
//
// The zero value is an empty cache ready to use. A Cache is not safe for
// concurrent use; callers sharing one across goroutines must synchronise
// access themselves.
type Cache struct {
	tables map[string][]*TableInfo
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[string][]*TableInfo)}
}

// Tables returns the cached tables of schema, loading them with load on a miss.
func (c *Cache) Tables(ctx context.Context, schema string, load TableLoader) ([]*TableInfo, error) {
	if tables, ok := c.tables[schema]; ok {
		return tables, nil
	}
	return c.Refresh(ctx, schema, load)
}

// Refresh reloads schema unconditionally and stores the result.
// On error the previous entry, if any, is kept.
func (c *Cache) Refresh(ctx context.Context, schema string, load TableLoader) ([]*TableInfo, error) {
	tables, err := load(ctx, schema)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []*TableInfo{}
	}
	if c.tables == nil {
		c.tables = make(map[string][]*TableInfo)
	}
	c.tables[schema] = tables
	return tables, nil
}

// Cached reports whether schema has an entry.
func (c *Cache) Cached(schema string) bool {
	_, ok := c.tables[schema]
	return ok
}

// Invalidate drops the entry for schema.
func (c *Cache) Invalidate(schema string) {
	delete(c.tables, schema)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.tables = nil
}
