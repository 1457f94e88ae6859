package facebook

import "sort"

// Helpers for probing decoded JSON values (map[string]interface{} trees).
// Classification is purely structural, so all of these are total: a missing
// or mistyped field reads as the zero value, never a panic.

// asObject returns v as a JSON object if it is one
func asObject(v interface{}) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// asArray returns v as a JSON array if it is one
func asArray(v interface{}) ([]interface{}, bool) {
	arr, ok := v.([]interface{})
	return arr, ok
}

// str returns the string value of a field, or "" if absent or not a string
func str(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}

// num returns the numeric value of a field. encoding/json decodes every JSON
// number to float64.
func num(obj map[string]interface{}, key string) (float64, bool) {
	f, ok := obj[key].(float64)
	return f, ok
}

// object returns the object value at the given key path, walking nested objects
func object(obj map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	cur := obj
	for _, key := range keys {
		next, ok := asObject(cur[key])
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// sortedKeys returns the keys of a JSON object in lexical order, so traversal
// order is stable across runs
func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// findKey searches the value tree depth-first for the first object field with
// the given key and returns its value
func findKey(root interface{}, key string) (interface{}, bool) {
	switch t := root.(type) {
	case []interface{}:
		for _, elem := range t {
			if v, ok := findKey(elem, key); ok {
				return v, true
			}
		}
	case map[string]interface{}:
		if v, ok := t[key]; ok {
			return v, true
		}
		for _, k := range sortedKeys(t) {
			if v, ok := findKey(t[k], key); ok {
				return v, true
			}
		}
	}
	return nil, false
}
