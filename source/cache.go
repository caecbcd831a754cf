// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

package source

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	ecache "github.com/dgryski/go-expirecache"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

// Cache stores raw upstream responses keyed by request URL.
type Cache interface {
	Get(k string) ([]byte, bool)
	Set(k string, v []byte, expire int32)
}

// NewCache returns the cache named by cacheType: null, mem or memcache.
// sizeMB bounds the mem cache, servers is the comma separated memcache list.
func NewCache(cacheType string, sizeMB int, servers string) (Cache, error) {
	switch cacheType {
	case "", "null":
		return NullCache{}, nil
	case "mem":
		c := &MemCache{ec: ecache.New(uint64(sizeMB * 1024 * 1024))}
		go c.ec.ApproximateCleaner(10 * time.Second)
		return c, nil
	case "memcache":
		if servers == "" {
			return nil, errors.NotValidf("memcache cache without servers")
		}
		list := strings.Split(servers, ",")
		log.WithFields(log.Fields{"servers": list}).Info("Using memcache servers")
		return &MemcachedCache{client: memcache.New(list...)}, nil
	}
	return nil, errors.NotValidf("cache type %q", cacheType)
}

type NullCache struct{}

func (NullCache) Get(string) ([]byte, bool) { return nil, false }
func (NullCache) Set(string, []byte, int32) {}

// MemCache is a size bounded in process cache.
type MemCache struct {
	ec *ecache.Cache
}

func (c *MemCache) Get(k string) ([]byte, bool) {
	v, ok := c.ec.Get(k)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *MemCache) Set(k string, v []byte, expire int32) {
	c.ec.Set(k, v, uint64(len(v)), expire)
}

// Size is the number of cached bytes.
func (c *MemCache) Size() uint64 { return c.ec.Size() }

// Items is the number of cached responses.
func (c *MemCache) Items() int { return c.ec.Items() }

type MemcachedCache struct {
	client *memcache.Client
}

func hashKey(k string) string {
	key := sha1.Sum([]byte(k))
	return hex.EncodeToString(key[:])
}

func (m *MemcachedCache) Get(k string) ([]byte, bool) {
	hk := hashKey(k)
	done := make(chan bool, 1)

	var err error
	var item *memcache.Item

	go func() {
		item, err = m.client.Get(hk)
		done <- true
	}()

	select {
	case <-time.After(50 * time.Millisecond):
		Metrics.MemcacheTimeouts.Add(1)
		return nil, false
	case <-done:
	}

	if err != nil {
		return nil, false
	}
	return item.Value, true
}

func (m *MemcachedCache) Set(k string, v []byte, expire int32) {
	go m.client.Set(&memcache.Item{Key: hashKey(k), Value: v, Expiration: expire})
}
