// Package utils provides utility functions and helpers for common operations
// used throughout the application: error types, JSON responses, request
// validation, logging and small string helpers.
package utils

import "strings"

// ContainsString checks if a string slice contains a specific string.
//
// Parameters:
//   - slice: the slice to search
//   - str: the string to find
//
// Returns:
//   - true if the string is found, false otherwise
func ContainsString(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

// TrimAll trims surrounding whitespace from every argument in place.
func TrimAll(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
