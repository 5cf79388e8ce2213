package shared

import "fmt"

// SequenceLockKey builds redis keys guarding per-prefix number issuance.
func SequenceLockKey(prefix string) string {
	return fmt.Sprintf("numbering:prefix:%s:lock", prefix)
}
