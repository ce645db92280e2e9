package storage

import "errors"

var (
	// ErrDatabaseNotFound is returned for an unknown database id.
	ErrDatabaseNotFound = errors.New("database not found")
	// ErrDecode is returned when an attachment payload is not valid base64.
	ErrDecode = errors.New("invalid base64 attachment data")
	// ErrInvalidFileName is returned when a file or field name does not
	// reduce to a single usable path element.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrAttachmentTooLarge is returned when a decoded attachment exceeds
	// the configured quota.
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrFileNameInUse is returned when two fields of one entry would store
	// their attachments under the same name.
	ErrFileNameInUse = errors.New("file name already used by another field")
)

// ErrorMarker replaces an attachment field whose file could not be saved.
const ErrorMarker = "ERROR_SAVING_FILE"
