// Package fairness decides whether a product recommendation satisfies the fairness
// policy: the product must be reachable, satisfy the user's hard constraints, have the
// highest utility among qualifying alternatives, and carry adequately disclosed
// commercial relationships.
//
// Every function is a pure, total computation over its explicit inputs (O(catalog size)).
// Nothing here holds shared mutable state or performs I/O; signature checks go through
// an injected crypto.SignatureVerifier.
package fairness
