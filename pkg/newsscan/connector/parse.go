package connector

import (
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/cognicore/newsscan/pkg/newsscan/enrich"
)

// FeedEntry is one <item> or <entry> block reduced to the fields the
// record mapping needs. Text fields are cleaned of markup.
type FeedEntry struct {
	Title       string `json:"title,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Published   string `json:"published,omitempty"`
	Author      string `json:"author,omitempty"`

	// PublishedTime is the feed library's reading of Published, used when
	// enrich.ParseTime does not recognise the raw value. Zero when unknown.
	PublishedTime time.Time `json:"-"`
}

var (
	entryPattern   = regexp.MustCompile(`(?is)<(item|entry)(?:\s[^>]*)?>(.*?)</(?:item|entry)>`)
	linkTagPattern = regexp.MustCompile(`(?is)<link\b([^>]*)/?>`)
	hrefPattern    = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']+)["']`)
	relPattern     = regexp.MustCompile(`(?is)\brel\s*=\s*["']([^"']+)["']`)
	namePattern    = regexp.MustCompile(`(?is)<name[^>]*>(.*?)</name>`)
	cdataPattern   = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	tagPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{
		"title", "link", "description", "summary", "content:encoded", "content",
		"pubDate", "published", "updated", "dc:date",
		"author", "dc:creator", "creator",
	} {
		tagPatterns[tag] = compileTag(tag)
	}
}

// compileTag matches <tag ...>body</tag>. The name must be followed by
// whitespace or '>' so "content" does not match "content:encoded".
func compileTag(tag string) *regexp.Regexp {
	name := regexp.QuoteMeta(tag)
	return regexp.MustCompile(`(?is)<` + name + `(?:\s[^>]*)?>(.*?)</` + name + `\s*>`)
}

// ParseFeed reads an RSS, Atom or JSON feed document. Documents gofeed
// rejects are scanned for <item> and <entry> blocks instead, so a feed with
// broken markup still yields its readable entries. Entries with neither a
// title nor a link are dropped and counted in skipped.
func ParseFeed(doc string) (entries []FeedEntry, skipped int) {
	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return scanFeed(doc)
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := fromItem(item)
		if entry.Title == "" && entry.Link == "" {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}

func fromItem(item *gofeed.Item) FeedEntry {
	entry := FeedEntry{
		Title:       feedText(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: feedText(item.Description),
		Content:     feedText(item.Content),
		Published:   strings.TrimSpace(firstNonEmpty(item.Published, item.Updated)),
		Author:      itemAuthor(item),
	}
	if entry.Link == "" && len(item.Links) > 0 {
		entry.Link = strings.TrimSpace(item.Links[0])
	}

	switch {
	case item.PublishedParsed != nil:
		entry.PublishedTime = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		entry.PublishedTime = item.UpdatedParsed.UTC()
	}
	return entry
}

// itemAuthor joins the item's author names, falling back to dc:creator.
func itemAuthor(item *gofeed.Item) string {
	var names []string
	for _, p := range item.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			names = append(names, strings.TrimSpace(p.Name))
		}
	}
	if len(names) == 0 && item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		names = append(names, strings.TrimSpace(item.Author.Name))
	}
	if len(names) == 0 && item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if c = strings.TrimSpace(c); c != "" {
				names = append(names, c)
			}
		}
	}
	return feedText(strings.Join(names, ", "))
}

// scanFeed pulls entries out of a document by matching element blocks.
func scanFeed(doc string) (entries []FeedEntry, skipped int) {
	for _, m := range entryPattern.FindAllStringSubmatch(doc, -1) {
		block := m[2]

		entry := FeedEntry{
			Title:       feedText(tagText(block, "title")),
			Link:        entryLink(block),
			Description: feedText(firstTag(block, "description", "summary")),
			Content:     feedText(firstTag(block, "content:encoded", "content")),
			Published:   strings.TrimSpace(firstTag(block, "pubDate", "published", "updated", "dc:date")),
			Author:      entryAuthor(block),
		}

		if entry.Title == "" && entry.Link == "" {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}

// tagText returns the CDATA-unwrapped body of the first tag element.
func tagText(block, tag string) string {
	re, ok := tagPatterns[tag]
	if !ok {
		re = compileTag(tag)
	}
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return unwrapCDATA(m[1])
}

// firstTag returns the first non-empty body among tags, in preference order.
func firstTag(block string, tags ...string) string {
	for _, tag := range tags {
		if text := tagText(block, tag); text != "" {
			return text
		}
	}
	return ""
}

// feedText cleans an element body. Escaped markup ("&lt;p&gt;") decodes
// into tags on the first pass, so it gets a second one.
func feedText(s string) string {
	text := enrich.Clean(s)
	if strings.Contains(text, "<") && strings.Contains(text, ">") {
		text = enrich.Clean(text)
	}
	return text
}

func unwrapCDATA(s string) string {
	return strings.TrimSpace(cdataPattern.ReplaceAllString(s, "$1"))
}

// entryLink prefers an Atom href (rel="alternate" first), then an RSS
// link body.
func entryLink(block string) string {
	var fallback string
	for _, m := range linkTagPattern.FindAllStringSubmatch(block, -1) {
		attrs := m[1]
		href := hrefPattern.FindStringSubmatch(attrs)
		if href == nil {
			continue
		}
		rel := relPattern.FindStringSubmatch(attrs)
		if rel == nil || strings.EqualFold(rel[1], "alternate") {
			return strings.TrimSpace(href[1])
		}
		if fallback == "" {
			fallback = strings.TrimSpace(href[1])
		}
	}
	if fallback != "" {
		return fallback
	}
	return enrich.Clean(tagText(block, "link"))
}

// entryAuthor handles RSS author strings and Atom <author><name> blocks.
func entryAuthor(block string) string {
	raw := firstTag(block, "author", "dc:creator", "creator")
	if raw == "" {
		return ""
	}
	if m := namePattern.FindStringSubmatch(raw); m != nil {
		return feedText(unwrapCDATA(m[1]))
	}
	return feedText(raw)
}
