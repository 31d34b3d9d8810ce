package omitnilpointers

import (
	"maps"
	"reflect"
	"slices"
)

// OmitNilPointers drops nil values and nil pointers from fields and
// dereferences the remaining pointers.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Ptr {
			omitted[key] = value
			continue
		}
		if v.IsNil() {
			continue
		}
		omitted[key] = v.Elem().Interface()
	}

	return omitted
}

// Pairs flattens fields into key/value pairs sorted by key, skipping nil
// pointers. The result is suitable for variadic HSET style arguments.
func Pairs(fields map[string]any) []any {
	omitted := OmitNilPointers(fields)

	pairs := make([]any, 0, len(omitted)*2)
	for _, key := range slices.Sorted(maps.Keys(omitted)) {
		pairs = append(pairs, key, omitted[key])
	}

	return pairs
}
