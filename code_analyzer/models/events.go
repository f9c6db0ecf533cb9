package models

// FileModified is delivered by the watch adapter whenever a file under the
// watched root is written.
type FileModified struct {
	Path string
	// Created is set when the file did not exist before this event.
	Created bool
}
