package models

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaKind classifies an attachment by its content type.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaOther MediaKind = "other"
)

// Media is a single attachment owned by a vault. The binary payload lives in
// object storage under StorageKey; only metadata is kept in the database.
type Media struct {
	ID         string
	VaultID    string
	Kind       MediaKind
	StorageKey string
	Caption    string
	CreatedAt  time.Time
}

// KindFromFilename infers the media kind from the file extension.
func KindFromFilename(name string) MediaKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return MediaPhoto
	case ".mp3", ".wav", ".ogg":
		return MediaAudio
	case ".mp4", ".webm", ".mov":
		return MediaVideo
	default:
		return MediaOther
	}
}
