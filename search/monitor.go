package search

import (
	"github.com/crazybass81/GovChat/core"
)

// RetrievalMonitor provides hooks to observe a retrieval.
// Implement this interface to trace intermediate results, e.g. from the CLI.
type RetrievalMonitor interface {
	Start(query Query)
	AfterFilter(ids []core.ID)
	AfterEmbedding(vector []float32, err error)
	AfterVectorSearch(matches []core.SimilarityMatch, err error)
	FallingBack(indexSize int)
	Finish(set *core.CandidateSet)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                                       {}
func (n *noopMonitor) AfterFilter(_ []core.ID)                             {}
func (n *noopMonitor) AfterEmbedding(_ []float32, _ error)                 {}
func (n *noopMonitor) AfterVectorSearch(_ []core.SimilarityMatch, _ error) {}
func (n *noopMonitor) FallingBack(_ int)                                   {}
func (n *noopMonitor) Finish(_ *core.CandidateSet)                         {}
