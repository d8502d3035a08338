// Package models defines the core data structures used throughout the application.
package models

import "time"

const (
	// NoDescription replaces a missing repository description.
	NoDescription = "Project has no description"
	// NoLanguage replaces a missing repository language.
	NoLanguage = "None"
)

// RawRepository is a single entry of the account repository listing as
// returned by the source API. Nullable JSON fields decode to "".
type RawRepository struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Language        string    `json:"language"`
	HTMLURL         string    `json:"html_url"`
	PushedAt        time.Time `json:"pushed_at"`
	StargazersCount int       `json:"stargazers_count"`
	Fork            bool      `json:"fork"`
}

// RepositoryRecord is the canonical, persisted form of a repository.
type RepositoryRecord struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Language      string    `json:"language"`
	URL           string    `json:"url"`
	LastPushedAt  time.Time `json:"last_pushed_at"`
	CommitCount   int       `json:"commit_count"`
	StarCount     int       `json:"star_count"`
	ReadmeContent string    `json:"readme_content"`
}

// SimpleDate formats the last push time for display.
func (r RepositoryRecord) SimpleDate() string {
	return r.LastPushedAt.Format("01/02/2006")
}

// PaginationParams represents parameters for paginated reads
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPaginationParams creates a new PaginationParams with validated values.
// If page or pageSize are less than 1, they will be set to their default values.
func NewPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultGroupSize
	}
	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}
