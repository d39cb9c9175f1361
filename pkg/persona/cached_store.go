package persona

import (
	"context"
	"encoding/json"
	"log"

	"personabot/pkg/cache"
)

// CachedStore wraps a Store with a Redis read-through cache for the
// default persona, which is fetched on every relayed message. Any
// mutation drops the cached entry; UpdateContent may target the
// default by name, so it invalidates too.
type CachedStore struct {
	Store
	cache *cache.Cache
}

func NewCachedStore(store Store, c *cache.Cache) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: c,
	}
}

func (c *CachedStore) defaultKey() string {
	return c.cache.Key("persona", "default")
}

func (c *CachedStore) GetDefault() (*Persona, error) {
	ctx := context.Background()

	data, err := c.cache.Get(ctx, c.defaultKey())
	if err == nil {
		var p Persona
		if unmarshalErr := json.Unmarshal([]byte(data), &p); unmarshalErr == nil {
			return &p, nil
		}
	} else if !cache.IsMiss(err) {
		log.Printf("Redis read failed for default persona, falling through: %v", err)
	}

	p, err := c.Store.GetDefault()
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(p); marshalErr == nil {
		_ = c.cache.Set(ctx, c.defaultKey(), string(data), cache.PersonaTTL)
	}
	return p, nil
}

func (c *CachedStore) invalidate() {
	_ = c.cache.Del(context.Background(), c.defaultKey())
}

func (c *CachedStore) UpdateContent(name, content string) error {
	err := c.Store.UpdateContent(name, content)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *CachedStore) UpdateDefaultContent(content string) error {
	err := c.Store.UpdateDefaultContent(content)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *CachedStore) SetDefault(name string) error {
	err := c.Store.SetDefault(name)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *CachedStore) SetSnapshot(content string) error {
	err := c.Store.SetSnapshot(content)
	if err == nil {
		c.invalidate()
	}
	return err
}

func (c *CachedStore) ClearSnapshot() error {
	err := c.Store.ClearSnapshot()
	if err == nil {
		c.invalidate()
	}
	return err
}
