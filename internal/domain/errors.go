package domain

import "errors"

var ErrInternal = errors.New("internal error")

var (
	ErrInvalidURL       = errors.New("invalid url")
	ErrEmptyText        = errors.New("empty text")
	ErrTextTooLong      = errors.New("text too long")
	ErrInvalidFull      = errors.New("invalid full comparison count")
	ErrInvalidScope     = errors.New("invalid search scope")
	ErrAmbiguousRequest = errors.New("either url or text must be set")
	ErrNoResult         = errors.New("copyscape returned no result")
	ErrAPIError         = errors.New("copyscape api error")
	ErrMissingHandle    = errors.New("copyscape did not return a handle")
	ErrInvalidKind      = errors.New("invalid document kind")
)

var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrDuplicateDocument    = errors.New("document already exists")
	ErrDocumentLimitReached = errors.New("document limit reached")
	ErrRegistryDisabled     = errors.New("document registry is not configured")
)
