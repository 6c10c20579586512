// Package ingestion turns public program listings into indexed records.
//
// A FeedClient pages through a listing feed and decodes JSON or tagged
// markup into RawItems. The Normalizer maps each item's provider-specific
// keys onto a ProgramRecord, and the Extractor derives eligibility
// predicates from its text with a vocabulary-driven rule table.
//
// The Indexer embeds records on a worker pool and upserts them. An
// embedding that keeps failing does not lose the record: it is stored
// without a vector, so attribute filters still find it, and queued for
// Drain to retry later.
package ingestion
