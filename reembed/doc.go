// Package reembed recomputes the embeddings of every indexed program, for
// example after switching embedding models.
//
// Programs are read in batches, embedded with one batch call under the
// retry policy, normalized and upserted. A batch whose embedding keeps
// failing is handed to the retry queue instead of aborting the run.
package reembed
