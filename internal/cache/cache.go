// Package cache - хранилища сессионного состояния бота.
package cache

import "time"

// Store хранит значение по ключу ограниченное время.
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}
