package activities

import "fmt"

// uniqueNamespace keeps promauto registrations from colliding across subtests.
func uniqueNamespace(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}
