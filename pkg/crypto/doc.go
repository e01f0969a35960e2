// Package crypto provides the signature and evidence-hash collaborators consumed by the
// fairness and audit engines.
//
// The engines only branch on boolean/comparison results. Everything in this package is
// injected: SignatureVerifier and EvidenceHasher are interfaces so tests and embedders
// can swap implementations.
package crypto
