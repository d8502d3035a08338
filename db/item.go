package db

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"reposync/models"
)

// KeyPrefix prefixes every partition key; the rest of the key is the
// repository name.
const KeyPrefix = "REPO#"

// Item attribute names.
const (
	AttrPartitionKey = "PK"
	AttrName         = "RepositoryName"
	AttrDescription  = "Description"
	AttrLanguage     = "Language"
	AttrURL          = "HtmlUrl"
	AttrPushedAt     = "PushedAt"
	AttrCommitCount  = "CommitCount"
	AttrStarCount    = "StarCount"
	AttrReadme       = "ReadmeContent"
)

// Item is the untyped property bag written to and read from a backend.
type Item map[string]any

// PartitionKey derives the storage key of a repository.
func PartitionKey(name string) string {
	return KeyPrefix + name
}

// NameFromKey recovers the repository name from a partition key.
func NameFromKey(key string) (string, bool) {
	name, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// ToItem maps a record to its stored form.
func ToItem(record models.RepositoryRecord) Item {
	return Item{
		AttrPartitionKey: PartitionKey(record.Name),
		AttrName:         record.Name,
		AttrDescription:  record.Description,
		AttrLanguage:     record.Language,
		AttrURL:          record.URL,
		AttrPushedAt:     record.LastPushedAt.UTC().Format(time.RFC3339),
		AttrCommitCount:  int64(record.CommitCount),
		AttrStarCount:    int64(record.StarCount),
		AttrReadme:       record.ReadmeContent,
	}
}

// FromItem maps a stored item back to a record. Missing counts and README
// default to zero values; the name falls back to the partition key for items
// written without an explicit RepositoryName.
func FromItem(item Item) (models.RepositoryRecord, error) {
	name := stringAttr(item, AttrName)
	if name == "" {
		var ok bool
		if name, ok = NameFromKey(stringAttr(item, AttrPartitionKey)); !ok {
			return models.RepositoryRecord{}, fmt.Errorf("%w: no repository name or partition key", ErrMalformedItem)
		}
	}

	raw := models.RawRepository{
		Name:            name,
		Description:     stringAttr(item, AttrDescription),
		Language:        stringAttr(item, AttrLanguage),
		HTMLURL:         stringAttr(item, AttrURL),
		PushedAt:        timeAttr(item, AttrPushedAt),
		StargazersCount: intAttr(item, AttrStarCount),
	}
	return models.Normalize(raw, intAttr(item, AttrCommitCount), stringAttr(item, AttrReadme)), nil
}

func stringAttr(item Item, name string) string {
	switch v := item[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func timeAttr(item Item, name string) time.Time {
	switch v := item[name].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	default:
		return time.Time{}
	}
}

func intAttr(item Item, name string) int {
	var n int64
	switch v := item[name].(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		n = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0
			}
			parsed = int64(f)
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return int(n)
}
