package services

import (
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors handlers map onto HTTP statuses. Ownership mismatches
// surface as ErrNotFound so a user cannot probe for another user's rows.
var (
	ErrNotFound           = errors.New("record not found")
	ErrStrategyNotFound   = errors.New("strategy not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// translate maps GORM errors onto the service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
