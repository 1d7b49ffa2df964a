// Package gorm provides GORM-based implementations of the garage store
// interfaces. PostgreSQL is used in production and SQLite for local
// development and tests.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: staff accounts, unique on email
//   - vehicles: unique on registration
//   - technicians
//   - repairs: references vehicles (cascade) and technicians (set null)
//
// # Usage
//
//	db, _ := gormstore.Open("postgres", dsn)
//	_ = gormstore.AutoMigrate(db)
//	users := gormstore.NewUserStore(db)
//	workshop := gormstore.NewWorkshopStore(db)
package gorm
