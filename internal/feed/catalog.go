package feed

import (
	"sort"

	"podhost/internal/models"
)

// CatalogFromJoined converts episode rows joined with their podcast.
func CatalogFromJoined(rows []models.EpisodeWithPodcast) []CatalogItem {
	out := make([]CatalogItem, len(rows))
	for i, row := range rows {
		out[i] = CatalogItem{Episode: row.Episode, PodcastTitle: row.PodcastTitle, PodcastSlug: row.PodcastSlug}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}
