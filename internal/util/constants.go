package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// Upload validation constants for notebook source files.
const (
	MimeAudio       = "audio/"
	MimeVideo       = "video/"
	MimePDF         = "application/pdf"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedAudioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac"}
	AllowedDocExtensions   = []string{".pdf", ".txt", ".md", ".doc", ".docx"}
)
