// Package cache implements the Cache Contract: a namespaced string
// key/value store used by the resolver stages for best-effort
// memoization. The core treats the cache as opaque and neither
// persistent nor consistent across processes.
package cache

// Fixed namespace strings used by the core. Backing implementations
// need not enforce this set; the resolver stages are the only callers.
const (
	NamespaceModResolverCurse    = "ModResolver::Curse"
	NamespaceModResolverModrinth = "ModResolver::Modrinth"
	NamespaceModResolverURL      = "ModResolver::URL"
	NamespaceCurseResolver       = "CurseResolver"
)

// Cache is the single user-extension point in the engine: a namespaced
// key/value string store. A cache miss is represented by ok == false,
// not an error; any returned error is treated as fatal by the calling
// worker.
type Cache interface {
	Put(namespace, key, payload string) error
	Get(namespace, key string) (payload string, ok bool, err error)
}
