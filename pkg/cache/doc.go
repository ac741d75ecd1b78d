// Package cache provides a small generic LRU cache.
//
// It backs process-local read caches such as the notification preference
// cache, where bounded memory matters more than hit rate.
package cache
