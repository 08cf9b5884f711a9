// Package cache holds read-through caches in front of repositories.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type Config struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// UserDirectory caches users by id. Misses are not cached, so a user promoted
// to provider is seen on the next lookup.
type UserDirectory struct {
	next  repository.UserDirectory
	cache *cache.Cache
}

func NewUserDirectory(next repository.UserDirectory, cfg Config) *UserDirectory {
	return &UserDirectory{
		next:  next,
		cache: cache.New(cfg.TTL, cfg.CleanupInterval),
	}
}

func key(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

func (d *UserDirectory) Get(ctx context.Context, id int64) (*model.User, error) {
	if v, ok := d.cache.Get(key(id)); ok {
		u := *v.(*model.User)
		return &u, nil
	}

	u, err := d.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.store(u)
	return u, nil
}

func (d *UserDirectory) GetProvider(ctx context.Context, id int64) (*model.User, error) {
	if v, ok := d.cache.Get(key(id)); ok {
		u := *v.(*model.User)
		if !u.Provider {
			return nil, repository.ErrNotFound
		}
		return &u, nil
	}

	u, err := d.next.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	d.store(u)
	return u, nil
}

// Forget drops a cached user.
func (d *UserDirectory) Forget(id int64) {
	d.cache.Delete(key(id))
}

func (d *UserDirectory) store(u *model.User) {
	cp := *u
	d.cache.SetDefault(key(u.ID), &cp)
}
