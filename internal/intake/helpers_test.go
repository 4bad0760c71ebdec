package intake

import "fmt"

func uniqueNamespace(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}
