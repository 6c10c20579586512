// Package matching drives the question-and-answer conversation that narrows
// a user's candidate programs.
//
// Each turn merges the user's answer into the stored profile, retrieves
// candidates, and decides between three states. COLLECTING asks the most
// informative unknown field next. CONVERGED presents a confident or small
// result. EXHAUSTED presents a best-effort result with a caveat when no
// question can help any more.
package matching
