package upload

import "errors"

var (
	ErrNoFile       = errors.New("no file provided")
	ErrUploadFailed = errors.New("blob transport upload failed")
)
