package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex org_01HQ8Z3V6N1J7Q9W3F4K2M5R8T
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_ORGANIZATION = "org"
	UUID_PREFIX_MEMBER       = "mem"
	UUID_PREFIX_CONTENT_JOB  = "job"
	UUID_PREFIX_LEDGER_ENTRY = "lent"
	UUID_PREFIX_EVENT        = "event"
)
