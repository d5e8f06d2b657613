package domain

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectKind classifies raw attachment bytes into a content kind by
// sniffing the MIME type.
func DetectKind(data []byte) ContentKind {
	mt := mimetype.Detect(data)
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		return KindImage
	case strings.HasPrefix(mt.String(), "text/"):
		return KindText
	default:
		return KindFile
	}
}
