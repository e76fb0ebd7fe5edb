package models

import (
	"net/url"
	"strings"
)

// ThreadsIntentURL is the compose endpoint posts are published to.
const ThreadsIntentURL = "https://www.threads.net/intent/post"

// Post is a single generated short-form update. Tags are stored without the
// leading # marker; the marker is re-added only when formatting for export.
type Post struct {
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	VisualPrompt string   `json:"visualPrompt,omitempty"`
}

// FormattedText returns the post body followed by its hashtags, the shape
// written to the clipboard and embedded in the publish intent URL.
func (p Post) FormattedText() string {
	if len(p.Tags) == 0 {
		return p.Content
	}
	tagged := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		tagged[i] = "#" + t
	}
	return p.Content + "\n\n" + strings.Join(tagged, " ")
}

// PublishURL returns the external compose URL with the formatted text
// percent-encoded as the text query parameter.
func (p Post) PublishURL() string {
	return ThreadsIntentURL + "?text=" + url.QueryEscape(p.FormattedText())
}

// ScheduledPost is a Post the user committed to a future publish time.
// It is immutable after creation and removed only by id.
type ScheduledPost struct {
	Post
	ID            string `json:"id"`
	ScheduledTime string `json:"scheduledTime"`
	CreatedAt     int64  `json:"createdAt"`
}

// ParseTags splits raw tag input on whitespace and commas, drops empty
// tokens and strips any leading # markers, so "#foo, ,bar" becomes
// ["foo","bar"].
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimLeft(f, "#")
		if f == "" {
			continue
		}
		tags = append(tags, f)
	}
	return tags
}
