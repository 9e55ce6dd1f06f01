package utils

import "strings"

// AssignMapValue writes value at a dotted path, creating intermediate objects
// as needed. Item markers (`[]`) are ignored so schema paths can be used
// directly. An intermediate non-object value is replaced.
func AssignMapValue(targetRaw map[string]any, path string, value any) map[string]any {
	if targetRaw == nil {
		targetRaw = make(map[string]any)
	}

	path = StripItemMarkers(path)
	if path == "" {
		return targetRaw
	}

	paths := strings.Split(path, SplitToken)

	if len(paths) == 1 {
		targetRaw[paths[0]] = value
		return targetRaw
	}

	existingValue, ok := targetRaw[paths[0]].(map[string]any)
	if !ok {
		existingValue = make(map[string]any)
	}

	targetRaw[paths[0]] = AssignMapValue(existingValue, strings.Join(paths[1:], SplitToken), value)

	return targetRaw
}

// HasMapValue reports whether a dotted path already holds a value.
func HasMapValue(targetRaw map[string]any, path string) bool {
	_, err := GetFieldByPath(targetRaw, StripItemMarkers(path))
	return err == nil
}
