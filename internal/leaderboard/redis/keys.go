package redis

import "fmt"

// Key prefix for all race data
const keyPrefix = "racegame"

// resultsKey returns the key of the sorted set holding ranked finishes
func resultsKey() string {
	return fmt.Sprintf("%s:results", keyPrefix)
}
