package ffmpeg

import (
	"os"
	"path/filepath"
	"strings"
)

// videoExtensions is the set of container formats accepted as input.
var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".webm": {},
	".m4v": {}, ".mpg": {}, ".mpeg": {}, ".wmv": {}, ".flv": {},
}

// Validator gates extraction and discovery walks on a cheap playability
// check: a regular file with a known video extension.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) IsValidVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; !ok {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
