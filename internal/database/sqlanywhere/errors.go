package sqlanywhere

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/koustreak/sqlany/internal/errs"
)

// Engine SQLCODEs (absolute values) the adapter distinguishes.
const (
	codeRowNotFound        = 100
	codeNotConnected       = 101
	codeInvalidLogin       = 103
	codeConnTerminated     = 308
	codeCommError          = 85
	codeConnDisallowed     = 99
	codeAuthViolation      = 98
	codePermissionDenied   = 121
	codeSyntaxError        = 131
	codeTableNotFound      = 141
	codeColumnNotFound     = 143
	codeProcedureNotFound  = 265
	codeStatementCancelled = 299
)

// numberedError is satisfied by driver errors that expose a native code.
type numberedError interface {
	SQLErrorNumber() int32
}

// mapError translates driver errors into *errs.Error, keeping the engine's
// message and status code.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return errs.WrapCode(
			classifyCode(msErr.Number),
			fmt.Sprintf("%s: %s", msg, msErr.Message),
			int(msErr.Number),
			err,
		)
	}

	var numbered numberedError
	if errors.As(err, &numbered) {
		n := numbered.SQLErrorNumber()
		return errs.WrapCode(classifyCode(n), msg, int(n), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps an engine status code to ErrKind. Codes arrive signed
// (SQLCODE) or unsigned (TDS error number) depending on the driver.
func classifyCode(code int32) errs.ErrKind {
	if code < 0 {
		code = -code
	}
	switch code {
	case codeRowNotFound, codeTableNotFound, codeColumnNotFound, codeProcedureNotFound:
		return errs.ErrKindNotFound
	case codeNotConnected, codeInvalidLogin, codeConnTerminated, codeCommError, codeConnDisallowed:
		return errs.ErrKindConnectionFailed
	case codeAuthViolation, codePermissionDenied:
		return errs.ErrKindPermissionDenied
	case codeStatementCancelled:
		return errs.ErrKindTimeout
	case codeSyntaxError:
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
