// Package pagecache renders addressable pages into PDF artifacts and caches
// them on disk.
//
// A Service canonicalizes a request into a Target, consults an Index keyed by
// the canonical URL and, on a miss, asks an Engine for a fresh PDF which is
// persisted through an ArtifactStore before the Index is updated. Concrete
// engines, stores and indexes live under adapters/.
package pagecache
