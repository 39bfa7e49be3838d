package application

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrGateway    = errors.New("payment gateway error")
)
