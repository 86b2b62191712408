package domain

import "errors"

var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrSaveRejected    = errors.New("draft save rejected")
	ErrRemoteRejected  = errors.New("draft controller reported failure")
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrAnchorNotSet    = errors.New("session anchor not set")
	ErrKeyNotFound     = errors.New("state key not found")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrInvalidSecret   = errors.New("secret must be a single non-empty line")
	ErrMissingRecordID = errors.New("record id is required")
)
