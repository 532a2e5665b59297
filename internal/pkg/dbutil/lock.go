// internal/pkg/dbutil/lock.go
// Package dbutil holds small gorm query helpers shared by the domain
// services.
package dbutil

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate adds a row lock to the query on engines that support
// it. SQLite has no FOR UPDATE; its single-writer model already
// serializes the transactions that would contend.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
