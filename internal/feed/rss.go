package feed

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"podhost/internal/mediatype"
	"podhost/internal/models"
	"podhost/internal/urlnorm"
)

// DefaultCoverPath is used as channel image when a podcast has no cover.
const DefaultCoverPath = "/default-cover.png"

const itunesNamespace = "http://www.itunes.com/dtds/podcast-1.0.dtd"

// Renderer turns podcasts and episodes into RSS 2.0 documents with iTunes
// tags. It holds no per-feed state and is safe for concurrent use.
type Renderer struct {
	BaseURL      string
	Language     string
	CatalogTitle string
	Normalizer   *urlnorm.Normalizer
	Now          func() time.Time
}

// CatalogItem is an episode tagged with the podcast it belongs to.
type CatalogItem struct {
	models.Episode
	PodcastTitle string
	PodcastSlug  string
}

type item struct {
	episode models.Episode
	slug    string
	author  string
}

// RenderPodcast renders the feed of a single podcast.
func (r *Renderer) RenderPodcast(p *models.Podcast, episodes []models.Episode) string {
	podcastURL := r.BaseURL + "/feeds/" + p.Slug

	author := p.Title
	if p.OwnerName != nil && *p.OwnerName != "" {
		author = *p.OwnerName
	}

	items := make([]item, len(episodes))
	for i, ep := range episodes {
		items[i] = item{episode: ep, slug: p.Slug, author: author}
	}

	var b strings.Builder
	r.writeHeader(&b)
	writeElement(&b, 2, "title", p.Title)
	writeElement(&b, 2, "link", podcastURL)
	writeElement(&b, 2, "description", deref(p.Description))
	writeElement(&b, 2, "language", r.language())
	writeElement(&b, 2, "lastBuildDate", FormatRFC2822(r.now()))
	writeElement(&b, 2, "itunes:author", author)
	if p.Description != nil {
		writeElement(&b, 2, "itunes:summary", *p.Description)
	}

	cover := r.coverURL(p.CoverURL)
	b.WriteString(`    <itunes:image href="` + EscapeXML(cover) + `"/>` + "\n")
	if p.OwnerName != nil || p.OwnerEmail != nil {
		b.WriteString("    <itunes:owner>\n")
		if p.OwnerName != nil {
			writeElement(&b, 3, "itunes:name", *p.OwnerName)
		}
		if p.OwnerEmail != nil {
			writeElement(&b, 3, "itunes:email", *p.OwnerEmail)
		}
		b.WriteString("    </itunes:owner>\n")
	}
	writeElement(&b, 2, "itunes:explicit", "false")
	b.WriteString("    <image>\n")
	writeElement(&b, 3, "url", cover)
	writeElement(&b, 3, "title", p.Title)
	writeElement(&b, 3, "link", podcastURL)
	b.WriteString("    </image>\n")

	r.writeItems(&b, items)
	writeFooter(&b)
	return b.String()
}

// RenderCatalog renders one feed over every podcast. Each item's author is
// the title of the podcast it came from.
func (r *Renderer) RenderCatalog(entries []CatalogItem) string {
	items := make([]item, len(entries))
	for i, e := range entries {
		items[i] = item{episode: e.Episode, slug: e.PodcastSlug, author: e.PodcastTitle}
	}

	title := r.CatalogTitle
	if title == "" {
		title = "All Podcasts"
	}
	catalogURL := r.BaseURL + "/feeds/all"

	var b strings.Builder
	r.writeHeader(&b)
	writeElement(&b, 2, "title", title)
	writeElement(&b, 2, "link", catalogURL)
	writeElement(&b, 2, "description", title)
	writeElement(&b, 2, "language", r.language())
	writeElement(&b, 2, "lastBuildDate", FormatRFC2822(r.now()))
	writeElement(&b, 2, "itunes:author", title)
	b.WriteString(`    <itunes:image href="` + EscapeXML(r.coverURL(nil)) + `"/>` + "\n")
	writeElement(&b, 2, "itunes:explicit", "false")
	r.writeItems(&b, items)
	writeFooter(&b)
	return b.String()
}

func (r *Renderer) writeHeader(b *strings.Builder) {
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:itunes="` + itunesNamespace + `">` + "\n")
	b.WriteString("  <channel>\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("  </channel>\n")
	b.WriteString("</rss>\n")
}

func (r *Renderer) writeItems(b *strings.Builder, items []item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].episode.PublishedAt.After(items[j].episode.PublishedAt)
	})
	for _, it := range items {
		r.writeItem(b, it)
	}
}

// writeItem skips episodes whose audio URL normalizes to nothing playable.
func (r *Renderer) writeItem(b *strings.Builder, it item) {
	ep := it.episode
	audioURL := r.Normalizer.Normalize(ep.AudioURL)
	if audioURL == "" {
		return
	}

	b.WriteString("    <item>\n")
	writeElement(b, 3, "title", ep.Title)
	writeElement(b, 3, "description", deref(ep.Description))
	writeElement(b, 3, "link", r.BaseURL+"/feeds/"+it.slug+"/"+ep.ID)
	writeElement(b, 3, "guid", r.BaseURL+"/episodes/"+ep.ID)
	writeElement(b, 3, "pubDate", FormatRFC2822(ep.PublishedAt))
	writeElement(b, 3, "itunes:author", it.author)
	if ep.DurationSeconds != nil && *ep.DurationSeconds > 0 {
		writeElement(b, 3, "itunes:duration", FormatDuration(*ep.DurationSeconds))
	}

	b.WriteString(`      <enclosure url="` + EscapeXML(audioURL) + `"`)
	b.WriteString(` type="` + EscapeXML(mediatype.ForName(ep.AudioURL)) + `"`)
	if ep.AudioSizeBytes != nil && *ep.AudioSizeBytes > 0 {
		b.WriteString(` length="` + strconv.FormatInt(*ep.AudioSizeBytes, 10) + `"`)
	}
	b.WriteString("/>\n")
	b.WriteString("    </item>\n")
}

func (r *Renderer) coverURL(cover *string) string {
	if cover != nil && *cover != "" {
		if u := r.Normalizer.Normalize(*cover); u != "" {
			return u
		}
	}
	return DefaultCoverPath
}

func (r *Renderer) language() string {
	if r.Language == "" {
		return "en"
	}
	return r.Language
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func writeElement(b *strings.Builder, depth int, name, value string) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("<" + name + ">")
	b.WriteString(EscapeXML(value))
	b.WriteString("</" + name + ">\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
