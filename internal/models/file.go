package models

import "time"

type File struct {
	ID           string
	OwnerID      string
	OriginalName string
	ObjectKey    string
	MimeType     string
	FileType     string
	Size         int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
