// Package render turns a resolved story into a deterministic markdown
// document and a filesystem-safe folder name.
package render

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"fbsaver/pkg/facebook"
)

// Input carries everything the renderer needs. The renderer itself is pure:
// metadata joins (group, creation time) happen in the caller against the
// session caches, and a nested attached story arrives pre-rendered.
type Input struct {
	Story       *facebook.Story
	Attachments []*facebook.Media

	// GroupName is empty when the story has no known parent group
	GroupName string
	// CreateTime is the zero value when unknown
	CreateTime time.Time
	// Nested is the pre-rendered text of the attached story, if any
	Nested string
}

// Document renders the story to markdown. Section order is fixed: URL,
// group, author, timestamp, media title, message, attachment list, then the
// nested story quoted line by line. Missing optional sections are omitted
// without leaving gaps.
func Document(in Input) string {
	var b strings.Builder

	if u := in.Story.CanonicalURL(); u != "" {
		fmt.Fprintln(&b, u)
	}
	if in.GroupName != "" {
		fmt.Fprintf(&b, "Group: %s\n", in.GroupName)
	}
	if author := in.Story.ActorName(); author != "" {
		fmt.Fprintf(&b, "Author: %s\n", author)
	}
	if !in.CreateTime.IsZero() {
		fmt.Fprintln(&b, in.CreateTime.UTC().Format(time.RFC3339))
	}
	if in.Story.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", in.Story.Title)
	}

	if in.Story.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", in.Story.Message)
	}

	if len(in.Attachments) > 0 {
		b.WriteString("\n")
		for _, media := range in.Attachments {
			if media.URL == "" {
				// No download URL derivable; skip just this one
				continue
			}
			switch media.Kind {
			case facebook.MediaPhoto:
				fmt.Fprintf(&b, "![%s](%s)\n", media.ID, media.URL)
			case facebook.MediaVideo, facebook.MediaWatchVideo:
				// Videos are linked, never embedded
				fmt.Fprintf(&b, "[%s](%s)\n", media.ID, media.URL)
			}
		}
	}

	if in.Nested != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(in.Nested, "\n"), "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}

	return b.String()
}

// FolderName builds the destination folder for a story's files: ISO date,
// sanitized group, sanitized author, then the post id, joined in that fixed
// order with missing optional parts omitted.
func FolderName(in Input) string {
	var parts []string

	if !in.CreateTime.IsZero() {
		parts = append(parts, in.CreateTime.UTC().Format("2006-01-02"))
	}
	if in.GroupName != "" {
		parts = append(parts, Sanitize(in.GroupName))
	}
	if author := in.Story.ActorName(); author != "" {
		parts = append(parts, Sanitize(author))
	}
	parts = append(parts, in.Story.Key())

	return strings.Join(parts, " - ")
}

// DataURL wraps a rendered document in an inline data: URL carrying
// percent-encoded markdown text
func DataURL(doc string) string {
	return "data:text/markdown;charset=utf-8," + url.PathEscape(doc)
}

// hostileChars are characters that are unsafe in folder and file names on
// at least one supported platform
const hostileChars = `/\:*?"<>|`

// Sanitize replaces filesystem-hostile characters with an underscore
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(hostileChars, r) {
			return '_'
		}
		return r
	}, name)
}
