// Package models defines domain entities and persistence interfaces for the syncdeck console.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs carried between layers
//   - [RunSummary] : a condensed view of one sync run for listings and exports
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [Run] : one observed sync run with its outcome and phase counts
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
