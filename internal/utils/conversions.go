package utils

import "fmt"

// ToStringSlice keeps the string-ish members of a decoded JSON array.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		switch s := v.(type) {
		case string:
			stringSlice = append(stringSlice, s)
		case float64, bool:
			stringSlice = append(stringSlice, fmt.Sprint(s))
		}
	}
	return stringSlice
}
