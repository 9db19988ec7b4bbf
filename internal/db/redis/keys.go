package redis

const keyPrefix = "seekdb:"

// Hash fields of a record. Declared metadata fields are stored alongside
// under their own names for indexing.
const (
	fieldID       = "__id"
	fieldDocument = "__document"
	fieldVector   = "__vector"
	fieldMetadata = "__metadata"
	fieldDistance = "__distance"
	// fieldKeys tags a record with the declared metadata fields it carries.
	fieldKeys = "__keys"
)

func databaseKey(tenant, name string) string {
	return keyPrefix + "db:" + tenant + ":" + name
}

func databasePattern(tenant string) string {
	return keyPrefix + "db:" + tenant + ":*"
}

func collectionKey(tenant, database, name string) string {
	return keyPrefix + "coll:" + tenant + ":" + database + ":" + name
}

func collectionPattern(tenant, database string) string {
	return keyPrefix + "coll:" + tenant + ":" + database + ":*"
}

func recordPrefix(collectionID string) string {
	return keyPrefix + "rec:" + collectionID + ":"
}

func recordKey(collectionID, id string) string {
	return recordPrefix(collectionID) + id
}

func indexName(collectionID string) string {
	return keyPrefix + "idx:" + collectionID
}

func kvKey(key string) string {
	return keyPrefix + "kv:" + key
}
