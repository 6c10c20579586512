// Package elastic implements storage.ProgramIndex on Elasticsearch.
//
// Each program is one document. Predicate bounds are flattened into typed
// fields (age_min, age_max, income_max as integers; region, business_type,
// employment_status, support_type as keywords) so eligibility becomes a bool
// filter in which a missing field means unconstrained. The unit-length
// embedding lives in a dense_vector field with cosine similarity and is
// searched with approximate knn. The full record is kept unindexed under
// "record" and is the source of truth when reading back.
package elastic
