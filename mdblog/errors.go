package mdblog

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const errTag = "mdblog: "

// Errors returned by the generator, wrapped with the path involved.
var (
	ErrSourceNotFound   = errors.New(errTag + "source does not exist")
	ErrTemplateNotFound = errors.New(errTag + "template not found")
	ErrTemplateRender   = errors.New(errTag + "template render failed")
	ErrOutputWrite      = errors.New(errTag + "cannot write output")
	ErrOutputConflict   = errors.New(errTag + "conflicting output page")
	ErrInvalidPort      = errors.New(errTag + "invalid port")
	ErrInvalidConfig    = errors.New(errTag + "invalid configuration")
)

const (
	codeInvalidArgument = "MDBLOG_INVALID_ARGUMENT"
	codeInvalidConfig   = "MDBLOG_INVALID_CONFIG"
	codeGenerateFailed  = "MDBLOG_GENERATE_FAILED"
	codeServeFailed     = "MDBLOG_SERVE_FAILED"
	codeCanceled        = "MDBLOG_CANCELED"
)

func wrapValidationError(err error, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithTextCode(code)
}

func wrapCommandError(err error, msg, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return goerrors.Wrap(err, goerrors.CategoryCommand, msg+": canceled").
			WithTextCode(codeCanceled)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, msg+": "+err.Error()).
		WithTextCode(code)
}
