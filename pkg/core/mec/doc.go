// Package mec implements the graph state machine for Markov equivalence
// classes of causal DAGs.
//
// A [DAG] is the immutable ground truth: a directed acyclic relation over N
// indexed nodes. A [CPDAG] is the partially directed representation of the
// equivalence class identified so far: every unordered pair of nodes is
// either absent, directed, or undirected (present but not yet orientable).
//
// # Lifecycle
//
// A CPDAG is created from a DAG by [SkeletonAndColliders] (or
// [Observational], which additionally closes under the orientation rules),
// then mutated in place as orientation information arrives:
//
//	cpdag := mec.Observational(dag)
//	work := cpdag.Clone() // branch before speculative evaluation
//	mec.SimulateIntervention(dag, work, batch, mec.SimulateOptions{Hard: true})
//
// CPDAGs are mutated in place and never share backing storage; callers that
// evaluate several candidate interventions against the same base state must
// Clone first.
//
// # Trust boundary
//
// None of the orientation operations validate their input. A relation that
// is not actually a DAG, or a CPDAG whose edge states are inconsistent with
// the DAG, produces undefined orientation results rather than an error.
// [DAG.Validate] is provided for callers that want to check acyclicity up
// front.
package mec
