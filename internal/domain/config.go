package domain

// KeyPrefix namespaces all ragpipe keys in the store.
const KeyPrefix = "ragpipe:"

// PassageKeyPrefix is the key prefix for stored passages.
const PassageKeyPrefix = KeyPrefix + "passages:"

// PassageIndexName is the FT index over stored passages.
const PassageIndexName = PassageKeyPrefix + "idx"

// DefaultVectorPath is the hash field holding the passage embedding.
const DefaultVectorPath = "__vector"

// Passage hash field names.
const (
	FieldText    = "__text"
	FieldSource  = "source"
	FieldVersion = "version"
)
