package utils

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

const (
	SplitToken     = "."
	IndexCloseChar = "]"
	IndexOpenChar  = "["
	ItemMarker     = "[]"
)

var (
	ErrMalformedIndex   = errors.New("malformed index key")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrNotFound         = errors.New("path not found")
	ErrNotTraversable   = errors.New("value is not traversable")
)

// GetFieldByPath walks a decoded JSON value along a dotted path. Segments may
// carry an explicit index (`items[2]`). Maps with non string keys, structs and
// pointers are traversed through reflection.
func GetFieldByPath(value any, path string) (any, error) {
	if path == "" {
		return value, nil
	}

	current := value
	for _, part := range strings.Split(path, SplitToken) {
		key, index, err := parseIndex(part)
		if err != nil {
			return nil, err
		}

		if key != "" {
			current, err = getValueByName(current, key)
			if err != nil {
				return nil, err
			}
		}

		if index >= 0 {
			current, err = getValueByIndex(current, index)
			if err != nil {
				return nil, err
			}
		}
	}

	return current, nil
}

// GetValueByPath is the lenient form of GetFieldByPath: any missing
// intermediate key yields nil instead of an error.
func GetValueByPath(value any, path string) any {
	result, err := GetFieldByPath(value, path)
	if err != nil {
		return nil
	}
	return result
}

// RelativePath strips an array path prefix (including its `[]` item marker)
// from an item-scoped field path, e.g. `orders[].total` relative to `orders`
// is `total`. Paths outside the array are returned unchanged.
func RelativePath(path, arrayPath string) string {
	if arrayPath == "" {
		return path
	}

	for _, prefix := range []string{arrayPath + ItemMarker + SplitToken, arrayPath + ItemMarker, arrayPath + SplitToken} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimPrefix(path, prefix)
		}
	}

	return path
}

// StripItemMarkers removes every `[]` marker, turning a schema path into a
// plain data path.
func StripItemMarkers(path string) string {
	return strings.ReplaceAll(path, ItemMarker, "")
}

func getValueByName(v any, key string) (any, error) {
	switch typed := v.(type) {
	case map[string]any:
		result, ok := typed[key]
		if !ok {
			return nil, ErrNotFound
		}
		return result, nil
	case nil:
		return nil, ErrNotFound
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrNotFound
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrNotTraversable
		}
		result := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !result.IsValid() {
			return nil, ErrNotFound
		}
		return result.Interface(), nil
	case reflect.Struct:
		result := rv.FieldByName(key)
		if !result.IsValid() || !result.CanInterface() {
			return nil, ErrNotFound
		}
		return result.Interface(), nil
	}

	return nil, ErrNotTraversable
}

func getValueByIndex(v any, index int) (any, error) {
	if arr, ok := v.([]any); ok {
		if index >= len(arr) {
			return nil, ErrIndexOutOfBounds
		}
		return arr[index], nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, ErrNotTraversable
	}
	if index >= rv.Len() {
		return nil, ErrIndexOutOfBounds
	}

	return rv.Index(index).Interface(), nil
}

// parseIndex splits `key[n]` into key and n. A missing or wildcard index
// returns -1.
func parseIndex(s string) (string, int, error) {
	start := strings.Index(s, IndexOpenChar)
	end := strings.Index(s, IndexCloseChar)

	if start == -1 && end == -1 {
		return s, -1, nil
	}

	if start == -1 || end == -1 || end < start {
		return "", -1, ErrMalformedIndex
	}

	indexStr := s[start+1 : end]
	if indexStr == "" || indexStr == "*" {
		return s[:start], -1, nil
	}

	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		return "", -1, ErrMalformedIndex
	}

	return s[:start], index, nil
}
