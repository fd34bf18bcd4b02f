package file

import "time"

type File struct {
	ID           string    `json:"id" db:"file_id"`
	CourseID     string    `json:"courseId" db:"course_id"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	StorageKey   string    `json:"-" db:"storage_key"`
	Filename     string    `json:"filename" db:"filename"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	SizeBytes    int64     `json:"size" db:"size_bytes"`
	UploadedAt   time.Time `json:"uploadedAt" db:"uploaded_at"`
}

// Grant is a short-lived retrieval link for one file. A fresh one is issued
// on every request; grants are never cached or reused.
type Grant struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
}

// allowedTypes is the upload allow-list, checked before any bytes are
// accepted.
var allowedTypes = map[string]bool{
	"application/pdf": true,
	"video/mp4":       true,
	"video/webm":      true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"text/plain":                   true,
	"text/csv":                     true,
}

func TypeAllowed(mimeType string) bool {
	return allowedTypes[mimeType]
}
