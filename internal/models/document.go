package models

// Change kinds carried by FileChangeEvent.
const (
	ChangeCreated  = "created"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// FileChangedEvent is the event name emitted for directory changes.
const FileChangedEvent = "file-changed"

// FileMetadata is display metadata parsed from a file name that follows the
// "<a> <b> <c> <title>" convention.
type FileMetadata struct {
	FileName string    `json:"file_name"`
	FullPath string    `json:"full_path"`
	Tokens   [3]string `json:"tokens"`
	Title    string    `json:"title"`
}

// FileChangeEvent describes one change inside a watched directory.
type FileChangeEvent struct {
	EventType string        `json:"event_type"`
	FilePath  string        `json:"file_path"`
	Metadata  *FileMetadata `json:"metadata,omitempty"`
}
