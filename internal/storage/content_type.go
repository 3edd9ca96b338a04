package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of an object.
//
// Detection order: the provided type, the key's file extension, sniffing the
// first 512 bytes of data, then "application/octet-stream".
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// AllowedLogoTypes are the MIME types accepted for logo uploads. The account
// service re-encodes everything to PNG, so this only gates the input format.
var AllowedLogoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true, // Some clients send this instead of image/jpeg
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsAllowedLogoType reports whether a content type is accepted for logo
// uploads. Parameters such as charset are stripped before the lookup.
func IsAllowedLogoType(contentType string) bool {
	return AllowedLogoTypes[baseType(contentType)]
}

// IsImage reports whether the content type is any image format.
func IsImage(contentType string) bool {
	return strings.HasPrefix(baseType(contentType), "image/")
}

func baseType(contentType string) string {
	base := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(base))
}
