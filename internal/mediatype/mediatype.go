// Package mediatype maps object keys onto the MIME types used for feed
// enclosures and for serving uploaded files.
package mediatype

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/eduncan911/podcast"
)

var enclosureTypes = map[string]podcast.EnclosureType{
	".mp3":  podcast.MP3,
	".m4a":  podcast.M4A,
	".mp4":  podcast.MP4,
	".m4v":  podcast.M4V,
	".mov":  podcast.MOV,
	".pdf":  podcast.PDF,
	".epub": podcast.EPUB,
}

// Default is used for keys without a recognised extension. Uploads are audio
// in practice, so players get a type they can start on.
const Default = "audio/mpeg"

// ForName returns the MIME type for a file name, object key or URL.
func ForName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(path.Ext(name))
	if et, ok := enclosureTypes[ext]; ok {
		return et.String()
	}
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return Default
}
