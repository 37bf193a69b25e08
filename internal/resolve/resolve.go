package resolve

// Resolve merges the three parameter layers for one operation. Explicit plan
// values win, then the adapter's namespace in the secure store, then the
// adapter's built-in defaults.
//
// A key that is missing from a layer, or explicitly nil in it, is unset
// there and falls through to the next layer. The result owns its map; the
// inputs are never mutated.
func Resolve(explicit map[string]any, namespace string, defaults map[string]any, store *SecureStore) map[string]any {
	resolved := make(map[string]any, len(explicit)+len(defaults))

	for k, v := range defaults {
		if v != nil {
			resolved[k] = v
		}
	}
	for k, v := range store.Namespace(namespace) {
		if v != nil {
			resolved[k] = v
		}
	}
	for k, v := range explicit {
		if v != nil {
			resolved[k] = v
		}
	}
	return resolved
}

// Lookup resolves a single key through the same layers as Resolve. The
// boolean reports whether any layer held a value.
func Lookup(key string, explicit map[string]any, namespace string, defaults map[string]any, store *SecureStore) (any, bool) {
	if v, ok := explicit[key]; ok && v != nil {
		return v, true
	}
	if v, ok := store.Get(namespace, key); ok {
		return v, true
	}
	if v, ok := defaults[key]; ok && v != nil {
		return v, true
	}
	return nil, false
}
