package room

import "errors"

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrVideoStateNotFound = errors.New("video state not found")
	ErrVersionMismatch    = errors.New("video state version mismatch")
)
