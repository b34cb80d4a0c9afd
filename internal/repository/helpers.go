package repository

import (
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// notFound converts sql.ErrNoRows into the driver-neutral sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, appErrors.ErrRecordNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func expectRow(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, appErrors.ErrRecordNotFound)
	}
	return nil
}
