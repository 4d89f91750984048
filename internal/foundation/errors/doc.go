// Package errors classifies failures by the build phase that produced them.
//
// Authoring mistakes (broken references) are collected and reported when the
// build finishes. Engine invariant violations (identity map misuse) abort at
// once. Probe failures carry a retry hint.
//
//	err := errors.IdentityError("route assigned after freeze").
//		WithContext("original_path", original).
//		Build()
package errors
