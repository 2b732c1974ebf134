// Package storeutil holds the key scheme shared by every datastore-backed
// store: id-prefixed keys plus the two singleton keys.
package storeutil

import "strings"

// Key prefixes for id-carrying entities.
const (
	FilePrefix   = "file_"
	FolderPrefix = "folder_"
	UserPrefix   = "user_"
	AuditPrefix  = "audit_"
)

// Singleton keys.
const (
	SettingsKey    = "settings"
	PermissionsKey = "permissions"
)

// Key builds the datastore key for an entity id under a prefix.
func Key(prefix, id string) string {
	return prefix + id
}

// MatchPrefix filters keys down to those carrying the prefix. The remote
// store has no server-side prefix query; enumerating an entity type is one
// listing call plus one fetch per matching key.
func MatchPrefix(keys []string, prefix string) []string {
	var matched []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched
}

// ID extracts the entity id from a prefixed key. Returns "" when the key
// does not carry the prefix.
func ID(key, prefix string) string {
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	return key[len(prefix):]
}
