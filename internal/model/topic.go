package model

import (
	"strconv"
	"strings"
)

// MiscellaneousTopic is the reserved bucket for repositories whose name does
// not follow the "<number>-<topic>-..." convention.
const MiscellaneousTopic = "Miscellaneous"

// TrackedRepository is a row of the metadata store: a repository the
// dashboard knows about and its (optional) topic.
//
// Topic is a pointer because the column is nullable: deleting a topic sets it
// to NULL and keeps the row.
type TrackedRepository struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	FullName string  `json:"full_name"`
	HTMLURL  string  `json:"html_url"`
	Owner    string  `json:"owner"`
	Topic    *string `json:"topic"`
}

// TopicRepository is one entry of a topic page: a tracked repository and up
// to five of its contributors. Contributors is empty, never null, when the
// lookup failed.
type TopicRepository struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	FullName     string        `json:"full_name"`
	HTMLURL      string        `json:"html_url"`
	Contributors []Contributor `json:"contributors"`
}

// TopicCount is one entry of the topic list.
type TopicCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopicList is the payload of GET /topics: named topics sorted by name, with
// the Miscellaneous bucket reported separately.
type TopicList struct {
	Topics             []TopicCount `json:"topics"`
	MiscellaneousCount int          `json:"miscellaneousCount"`
}

// DeriveTopic applies the naming convention:
//
//	"12-backend-service" → "backend"
//	"7-x"                → "x"
//	"frontend-app"       → "Miscellaneous"
//
// The first dash-separated segment must parse as an integer and a second
// segment must exist; otherwise the repository is Miscellaneous.
func DeriveTopic(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return MiscellaneousTopic
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return MiscellaneousTopic
	}
	if parts[1] == "" {
		return MiscellaneousTopic
	}
	return parts[1]
}

// StringPtr is a small helper for building nullable topics in literals.
func StringPtr(s string) *string {
	return &s
}
