package dataset

import "fmt"

// NotFoundError reports a sequence number with no metadata row.
type NotFoundError struct {
	SequenceNo int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sequence %d not found in metadata", e.SequenceNo)
}

// MissingFileError reports a metadata-listed path that does not exist on disk.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing file: %s", e.Path)
}

// EmptyFileError reports a zero-byte file.
type EmptyFileError struct {
	Path string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("empty file: %s", e.Path)
}

// DecodeError reports a stream that could not be opened or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FormatError reports a malformed metadata row or timestamp line.
type FormatError struct {
	Source string
	Line   int
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s:%d: field %s: %v", e.Source, e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
