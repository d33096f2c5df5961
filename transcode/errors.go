package transcode

import (
	"fmt"
	"strings"
)

// DecodeError reports a file that could not be turned into PCM samples.
type DecodeError struct {
	Path string
	Op   string
	Err  error
}

func (e *DecodeError) Error() string {
	target := e.Path
	if target == "" {
		target = "<bytes>"
	}
	if e.Err == nil {
		return fmt.Sprintf("decode %s: %s failed", target, e.Op)
	}
	return fmt.Sprintf("decode %s: %s: %v", target, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for transport layers.
func (e *DecodeError) ErrorKind() string { return "decode" }

// UnsupportedFormatError is returned for extensions outside the whitelist.
type UnsupportedFormatError struct {
	Name      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "<none>"
	}
	return fmt.Sprintf("unsupported audio format %s for %q (allowed: %s)", ext, e.Name, strings.Join(AllowedExtensions(), ", "))
}

func (e *UnsupportedFormatError) ErrorKind() string { return "unsupported_format" }
