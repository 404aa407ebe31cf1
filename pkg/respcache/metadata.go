package respcache

import (
	"fmt"
	"time"

	"github.com/wingedpig/ipowners/pkg/util/ipcodec"
)

// SchemaVersion is written to new caches
const SchemaVersion = 1

// Metadata keys
const (
	metaKeySchema    = "schema"
	metaKeyCreatedAt = "created_at"
)

// SetMetadata sets a metadata key-value pair
func (c *Cache) SetMetadata(key, value string) error {
	return c.put(ipcodec.MetaKey(key), []byte(value))
}

// GetMetadata retrieves a metadata value
func (c *Cache) GetMetadata(key string) (string, error) {
	value, err := c.get(ipcodec.MetaKey(key))
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return string(value), nil
}

// GetSchemaVersion retrieves the cache schema version
func (c *Cache) GetSchemaVersion() (int, error) {
	value, err := c.GetMetadata(metaKeySchema)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	var version int
	if _, err := fmt.Sscanf(value, "%d", &version); err != nil {
		return 0, fmt.Errorf("invalid schema version: %w", err)
	}
	return version, nil
}

// GetCreatedAt retrieves the cache creation timestamp
func (c *Cache) GetCreatedAt() (time.Time, error) {
	value, err := c.GetMetadata(metaKeyCreatedAt)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// initMetadata writes schema and creation time on first open and
// rejects caches written by a newer schema
func (c *Cache) initMetadata() error {
	version, err := c.GetSchemaVersion()
	if err != nil {
		return err
	}

	if version > SchemaVersion {
		return fmt.Errorf("cache schema %d is newer than supported %d", version, SchemaVersion)
	}
	if version != 0 {
		return nil
	}

	if err := c.SetMetadata(metaKeySchema, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return err
	}
	return c.SetMetadata(metaKeyCreatedAt, time.Now().UTC().Format(time.RFC3339))
}
