package kv

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SchemaHash computes the short schema-hash for a set of logical
// keyspace/table names: the names are sorted, joined and hashed, so that
// opening an existing database can verify binary compatibility before any
// read. Two backends exposing the same logical schema under the same names
// always agree on this hash regardless of declaration order.
func SchemaHash(keyspaces []string) string {
	sorted := append([]string(nil), keyspaces...)
	sort.Strings(sorted)
	sum := xxhash.Sum64String(strings.Join(sorted, "\x00"))
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}
