package models

// ChatSettings is the per-chat processing configuration. Values are
// snapshots: the settings store hands out copies, never shared pointers,
// so a caller can hold one across blocking I/O without synchronization.
type ChatSettings struct {
	Filter     string
	PasteStyle string
}

// PhotoVariant is one size rendition of an inbound photo as the platform
// reports it. FileSize is zero when the platform omits it.
type PhotoVariant struct {
	FileID       string
	FileUniqueID string
	Width        int
	Height       int
	FileSize     int
}
