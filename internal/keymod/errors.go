package keymod

import "errors"

var (
	ErrKeyNotFound     = errors.New("keymod: key record not found")
	ErrKeyExists       = errors.New("keymod: key record already exists")
	ErrUnknownModule   = errors.New("keymod: unknown key module")
	ErrDuplicateModule = errors.New("keymod: module already registered")
	ErrBadRequest      = errors.New("keymod: malformed request")
	ErrEmptySecret     = errors.New("keymod: empty passphrase secret")
)
