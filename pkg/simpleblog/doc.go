// Package simpleblog implements the content lifecycle engine of a blogging
// API: posts with single-slot cover images, threaded comments, and
// ownership-scoped reversible deletion.
//
// The package keeps a transactional relational store (Repository) and a
// non-transactional blob store (BlobStore, wrapped by CoverImageStore)
// mutually consistent through ordered, idempotent operations: new assets are
// always stored before old ones are deleted, and blob purges never fail a
// committed relational transaction.
//
// Construct a Service with explicit dependencies:
//
//	svc, err := simpleblog.New(
//	    simpleblog.WithRepository(memory.New()),
//	    simpleblog.WithCoverImageStore(
//	        simpleblog.NewCoverImageStore("memory", memorystorage.New()),
//	    ),
//	)
//
// Entities move Active -> Trashed -> Active (restore) or Trashed -> gone
// (force delete); there is no direct path from Active to permanent removal.
package simpleblog
