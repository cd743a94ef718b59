package utils

import "reflect"

// Sanitize drops the entries of a partial update whose value is nil,
// including typed nil pointers, so they do not overwrite stored columns.
// Remaining pointers are dereferenced.
func Sanitize(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if isNil(v) {
			continue
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
			v = rv.Elem().Interface()
		}
		out[k] = v
	}
	return out
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
