// Package link resolves and applies logical connections between node ports
// that may live in different nested scopes.
//
// A logical connection from A:0 to B:0 is realized as a chain of structural
// legs. When A and B share a parent scope the chain is one direct leg.
// Otherwise it climbs out of A's scopes through each boundary-out proxy up
// to the lowest common ancestor scope, then descends through each
// boundary-in proxy down to B's scope:
//
//	Top/G1/A[0] -> Top/G1/Multi-Port-Out[k]     (outward leg)
//	Top/G1[k]   -> Top/G2[j]                    (ancestor level)
//	Top/G2/Multi-Port-In[j] -> Top/G2/B[0]      (terminal leg)
//
// The Linker plans the chain read-only first (FindOutwardPath,
// FindInwardPath), reusing legs and pass-through port pairs that already
// exist, then realizes the missing legs outward first and inward second,
// and finally re-validates the result.
//
// Errors are *Error values carrying a Code. Conflicts and invalid endpoints
// are reported before the first host mutation. A host refusal in the middle
// of realization is reported as CodeStructuralInconsistency and is not
// rolled back; wrap calls in a history.Journal transaction to undo them.
package link
