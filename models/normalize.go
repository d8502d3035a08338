package models

import "slices"

// DefaultGroupSize is the number of records per page produced by GroupPages.
const DefaultGroupSize = 3

// Normalize builds the canonical record for raw, attaching the enrichment
// outputs. Missing description and language are replaced by sentinels.
func Normalize(raw RawRepository, commitCount int, readme string) RepositoryRecord {
	return RepositoryRecord{
		Name:          raw.Name,
		Description:   orSentinel(raw.Description, NoDescription),
		Language:      orSentinel(raw.Language, NoLanguage),
		URL:           raw.HTMLURL,
		LastPushedAt:  raw.PushedAt,
		CommitCount:   max(commitCount, 0),
		StarCount:     max(raw.StargazersCount, 0),
		ReadmeContent: readme,
	}
}

func orSentinel(value, sentinel string) string {
	if value == "" || value == "null" {
		return sentinel
	}
	return value
}

// SortByCommitCount orders records by commit count, highest first. Records
// with equal counts keep their relative order.
func SortByCommitCount(records []RepositoryRecord) {
	slices.SortStableFunc(records, func(a, b RepositoryRecord) int {
		return b.CommitCount - a.CommitCount
	})
}

// GroupPages splits records into consecutive pages of at most size records.
func GroupPages(records []RepositoryRecord, size int) [][]RepositoryRecord {
	if size < 1 {
		size = DefaultGroupSize
	}
	pages := make([][]RepositoryRecord, 0, (len(records)+size-1)/size)
	for chunk := range slices.Chunk(records, size) {
		pages = append(pages, chunk)
	}
	return pages
}

// Page returns the records selected by p from the already sorted records.
func Page(records []RepositoryRecord, p PaginationParams) []RepositoryRecord {
	start := (p.Page - 1) * p.PageSize
	if start >= len(records) {
		return []RepositoryRecord{}
	}
	end := min(start+p.PageSize, len(records))
	return records[start:end]
}
