package common

import (
	"sort"
)

// SanitizeLeadingDigit prefixes names that start with a digit with "Num"
// to keep identifiers valid in generated code.
func SanitizeLeadingDigit(name string) string {
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "Num" + name
	}
	return name
}

// EnumValueName turns a set constraint value into a member name of the
// enum type: "fast-mode" -> "FastMode", "1mL" -> "Num1mL".
func EnumValueName(typeName, value string) string {
	name := Identifier(value)
	if name == "" {
		name = "Empty"
	}
	return typeName + name
}

// SortedKeys returns the sorted keys of a string keyed map.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
