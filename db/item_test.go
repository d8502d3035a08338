package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposync/models"
)

func TestPartitionKeyRoundTrip(t *testing.T) {
	names := []string{"a", "reposync", "dotted.name", "with-dash_and_underscore", "REPO#nested", "ünïcode"}

	for _, name := range names {
		key := PartitionKey(name)
		assert.Equal(t, KeyPrefix+name, key)

		recovered, ok := NameFromKey(key)
		assert.True(t, ok)
		assert.Equal(t, name, recovered)
	}

	_, ok := NameFromKey("OTHER#a")
	assert.False(t, ok)
	_, ok = NameFromKey(KeyPrefix)
	assert.False(t, ok)
}

func TestItemRoundTrip(t *testing.T) {
	record := models.RepositoryRecord{
		Name:          "repo",
		Description:   "desc",
		Language:      "Go",
		URL:           "https://github.com/acct/repo",
		LastPushedAt:  time.Date(2025, time.May, 1, 8, 30, 0, 0, time.UTC),
		CommitCount:   42,
		StarCount:     5,
		ReadmeContent: "IyBSZXBv",
	}

	item := ToItem(record)
	assert.Equal(t, "REPO#repo", item[AttrPartitionKey])
	assert.Equal(t, "2025-05-01T08:30:00Z", item[AttrPushedAt])

	back, err := FromItem(item)
	require.NoError(t, err)
	assert.Equal(t, record, back)
}

func TestFromItem_Tolerance(t *testing.T) {
	testCases := []struct {
		name        string
		item        Item
		expected    models.RepositoryRecord
		expectedErr error
	}{
		{
			name: "legacy item without explicit name or optional fields",
			item: Item{
				AttrPartitionKey: "REPO#legacy",
				AttrDescription:  "old",
				AttrLanguage:     "C",
				AttrURL:          "https://github.com/acct/legacy",
			},
			expected: models.RepositoryRecord{
				Name:        "legacy",
				Description: "old",
				Language:    "C",
				URL:         "https://github.com/acct/legacy",
			},
		},
		{
			name: "json decoded numbers",
			item: Item{
				AttrName:        "repo",
				AttrCommitCount: json.Number("17"),
				AttrStarCount:   float64(3),
			},
			expected: models.RepositoryRecord{
				Name:        "repo",
				Description: models.NoDescription,
				Language:    models.NoLanguage,
				CommitCount: 17,
				StarCount:   3,
			},
		},
		{
			name: "garbage values default to zero",
			item: Item{
				AttrName:        "repo",
				AttrCommitCount: "many",
				AttrStarCount:   int64(-4),
				AttrPushedAt:    "yesterday",
				AttrReadme:      42,
			},
			expected: models.RepositoryRecord{
				Name:        "repo",
				Description: models.NoDescription,
				Language:    models.NoLanguage,
			},
		},
		{
			name:        "no name at all",
			item:        Item{AttrDescription: "orphan"},
			expectedErr: ErrMalformedItem,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := FromItem(tc.item)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, record)
		})
	}
}
