package model

type SourceType string

const (
	SourcePDF     SourceType = "pdf"
	SourceText    SourceType = "text"
	SourceWebsite SourceType = "website"
	SourceYoutube SourceType = "youtube"
	SourceAudio   SourceType = "audio"
	SourceDoc     SourceType = "doc"
)

type SourceStatus string

const (
	SourcePending    SourceStatus = "pending"
	SourceProcessing SourceStatus = "processing"
	SourceCompleted  SourceStatus = "completed"
	SourceFailed     SourceStatus = "failed"
)

// Source is an uploaded file, URL or media reference attached to a notebook.
// Status transitions are driven by the external processing pipeline; the
// backend only records them.
type Source struct {
	UUIDBase
	NotebookID      string       `gorm:"index;type:varchar(36);not null" json:"notebookId"`
	Type            SourceType   `gorm:"size:20;not null" json:"type"`
	Title           string       `gorm:"size:255;not null" json:"title"`
	Summary         string       `gorm:"type:text" json:"summary,omitempty"`
	URL             string       `gorm:"size:500" json:"url,omitempty"`
	StoragePath     string       `gorm:"size:500" json:"storagePath,omitempty"`
	DurationSeconds int          `gorm:"default:0" json:"durationSeconds,omitempty"` // probed for audio/video uploads
	Status          SourceStatus `gorm:"size:20;default:'pending'" json:"status"`
}

func (Source) TableName() string {
	return "sources"
}
