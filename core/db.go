package core

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type DBTransactor interface {
	Commit() error
	Rollback() error
}

// RunInTx runs fn inside a transaction opened by begin.
// The transaction is committed when fn succeeds and rolled back otherwise;
// a failure is reported as by AbortTx.
// A started unit is never interrupted by the cancellation of ctx.
func RunInTx[T DBTransactor](ctx context.Context, begin func(context.Context) (T, error), fn func(T) error) error {
	ctx = context.WithoutCancel(ctx)

	tx, err := begin(ctx)
	if err != nil {
		return NewTransactionError(errors.Wrap(err, "beginning transaction"))
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewTransactionError(errors.Wrapf(err, "rolling back (%v)", rbErr))
		}
		return AbortTx(err)
	}
	if err = tx.Commit(); err != nil {
		return NewTransactionError(errors.Wrap(err, "committing transaction"))
	}
	return nil
}

// AbortTx reports the failure of a rolled back unit. Bad input (NotFound and
// validation failures) is returned as is since retrying it cannot succeed;
// anything else is wrapped in a *TransactionError.
func AbortTx(err error) error {
	var verrs validator.ValidationErrors
	if IsNotFound(err) || IsValidation(err) || errors.As(err, &verrs) {
		return err
	}
	return NewTransactionError(err)
}
