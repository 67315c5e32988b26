package wire

import "strings"

var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg"}

// IsImage reports whether message content should be rendered as an image:
// a data URI with an image media type or a URL ending in an image suffix.
func IsImage(content string) bool {
	c := strings.TrimSpace(content)
	if strings.HasPrefix(c, "data:image/") {
		return true
	}
	if !strings.HasPrefix(c, "http://") && !strings.HasPrefix(c, "https://") {
		return false
	}
	path := strings.ToLower(c)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, s := range imageSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
