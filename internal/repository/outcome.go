package repository

import (
	"errors"

	"gorm.io/gorm"
)

// InsertOutcome tells an insert-if-absent caller whether its row was
// written or an equal row was already there. Neither case is an error.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota + 1
	AlreadyExists
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

// outcomeOf classifies the result of a Create issued with
// clause.OnConflict{DoNothing: true}. Zero affected rows means the conflict
// clause swallowed a duplicate; a duplicate-key error (drivers or schemas
// that bypass the clause) is folded into the same outcome.
func outcomeOf(res *gorm.DB) (InsertOutcome, error) {
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return AlreadyExists, nil
		}
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}
