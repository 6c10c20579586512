package elastic

import (
	"strconv"
	"time"

	"github.com/crazybass81/GovChat/core"
)

// document is the indexed form of a ProgramRecord.
type document struct {
	ID               string              `json:"id"`
	Active           bool                `json:"active"`
	UpdatedAt        string              `json:"updated_at"`
	AgeMin           *int                `json:"age_min,omitempty"`
	AgeMax           *int                `json:"age_max,omitempty"`
	IncomeMax        *int                `json:"income_max,omitempty"`
	Region           []string            `json:"region,omitempty"`
	BusinessType     []string            `json:"business_type,omitempty"`
	EmploymentStatus []string            `json:"employment_status,omitempty"`
	SupportType      []string            `json:"support_type,omitempty"`
	Vector           []float32           `json:"vector,omitempty"`
	Record           *core.ProgramRecord `json:"record"`
}

func newDocument(record *core.ProgramRecord) document {
	doc := document{
		ID:        record.Id.String(),
		Active:    record.Active,
		UpdatedAt: record.UpdatedAt.Format(time.RFC3339Nano),
		Vector:    record.Vector,
	}
	for _, p := range record.Predicates {
		n := p.Number
		switch p.Field {
		case core.PredicateAgeMin:
			doc.AgeMin = &n
		case core.PredicateAgeMax:
			doc.AgeMax = &n
		case core.PredicateIncomeMax:
			doc.IncomeMax = &n
		case core.PredicateRegion:
			doc.Region = p.Values
		case core.PredicateBusinessType:
			doc.BusinessType = p.Values
		case core.PredicateEmploymentStatus:
			doc.EmploymentStatus = p.Values
		case core.PredicateSupportType:
			doc.SupportType = p.Values
		}
	}
	// the stored record carries no vector; it is indexed separately
	stored := *record
	stored.Vector = nil
	doc.Record = &stored
	return doc
}

// indexMapping returns the index definition for vectors of the given size.
func indexMapping(dims int) map[string]any {
	keyword := map[string]any{"type": "keyword"}
	integer := map[string]any{"type": "integer"}
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":                keyword,
				"active":            map[string]any{"type": "boolean"},
				"updated_at":        map[string]any{"type": "date"},
				"age_min":           integer,
				"age_max":           integer,
				"income_max":        integer,
				"region":            keyword,
				"business_type":     keyword,
				"employment_status": keyword,
				"support_type":      keyword,
				"vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
				"record": map[string]any{"type": "object", "enabled": false},
			},
		},
	}
}

// unconstrainedOr matches documents that either lack field or satisfy clause.
func unconstrainedOr(field string, clause map[string]any) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"should": []any{
				map[string]any{"bool": map[string]any{
					"must_not": map[string]any{"exists": map[string]any{"field": field}},
				}},
				clause,
			},
			"minimum_should_match": 1,
		},
	}
}

func rangeClause(field, op string, n int) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: n}}}
}

func termClause(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

// buildFilterClauses mirrors core.Filter.Admits as Elasticsearch filters.
func buildFilterClauses(filter core.Filter) []any {
	clauses := []any{termClause("active", "true")}
	for _, field := range core.ProfileFields {
		value := filter[field]
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if field.IsNumeric() && err != nil {
			continue
		}
		for _, pf := range core.PredicatesFor(field) {
			name := string(pf)
			switch pf {
			case core.PredicateAgeMin:
				clauses = append(clauses, unconstrainedOr(name, rangeClause(name, "lte", n)))
			case core.PredicateAgeMax, core.PredicateIncomeMax:
				clauses = append(clauses, unconstrainedOr(name, rangeClause(name, "gte", n)))
			default:
				clauses = append(clauses, unconstrainedOr(name, termClause(name, value)))
			}
		}
	}
	return clauses
}

func buildFilterQuery(filter core.Filter) map[string]any {
	return map[string]any{
		"_source": []string{"id"},
		"query": map[string]any{
			"bool": map[string]any{"filter": buildFilterClauses(filter)},
		},
	}
}

// buildKNNQuery caps k and num_candidates at the knn limit; Elasticsearch
// rejects larger requests.
func buildKNNQuery(vector []float32, k int) map[string]any {
	k = min(k, maxKNNCandidates)
	return map[string]any{
		"size":    k,
		"_source": []string{"id"},
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": min(max(k*2, 100), maxKNNCandidates),
			"filter":         termClause("active", "true"),
		},
	}
}

// cosineFromScore inverts the (1 + cosine) / 2 scaling Elasticsearch
// applies to cosine knn scores.
func cosineFromScore(score float64) float32 {
	return float32(2*score - 1)
}
