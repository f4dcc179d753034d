// Package models defines domain entities and persistence interfaces for the spx export pipeline.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs carrying catalog data
//   - [Playlist] : Playlist metadata from the catalog
//   - [Track] : The normalized track record produced by the extractor
//   - [Failure] : A per-track acquisition failure with its reason
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedDownload] : Completed acquisitions recorded in the local ledger
//
// Persistent entities implement the Model interface providing ID generation, timestamps,
// validation, and soft delete support. The Repository[T] interface defines standard CRUD
// operations for database access.
package models
