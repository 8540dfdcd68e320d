package database

import (
	"time"
)

type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertInserted
	UpsertUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

type BatchResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

func (b BatchResult) Changed() int {
	return b.Inserted + b.Updated
}

func (b *BatchResult) add(r UpsertResult) {
	switch r {
	case UpsertInserted:
		b.Inserted++
	case UpsertUpdated:
		b.Updated++
	default:
		b.Unchanged++
	}
}

// PublishState is the fingerprint of the last document written to a wiki page.
type PublishState struct {
	Subreddit   string // subreddit owning the wiki page
	WikiPage    string
	Fingerprint string
	PublishedAt time.Time
}
