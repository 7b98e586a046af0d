package database

import (
	"time"

	"github.com/alex-zharinov/hw05-final/internal/observability"

	"gorm.io/gorm"
)

const metricsStartKey = "metrics:start"

// RegisterMetrics hooks query latency observation into every GORM callback chain.
func RegisterMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(metricsStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(metricsStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			observability.ObserveQuery(operation, table, start)
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after("create")); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after("query")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete")); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("metrics:before_row", before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("metrics:after_row", after("row")); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("metrics:after_raw", after("raw"))
}
