package redis

const (
	// KeyPrefixRecord is the prefix for site link record keys
	KeyPrefixRecord = "sitelink:record:"
	// KeyAllRecords is the set of all record IDs
	KeyAllRecords = "sitelink:records:all"
	// KeyRegistry is the published registry projection (linkId -> record)
	KeyRegistry = "sitelink:registry"
	// KeyRegistryStaging receives a projection before it is swapped in
	KeyRegistryStaging = "sitelink:registry:staging"
)

// RecordKey returns the Redis key for a record by ID
func RecordKey(id string) string {
	return KeyPrefixRecord + id
}
