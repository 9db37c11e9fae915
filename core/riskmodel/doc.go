// Package riskmodel holds the trained artifacts used by risk enrichment: a
// status classifier, the categorical label encoders and an optional
// root-cause clusterer. Artifacts are loaded from a JSON file and can be
// swapped at runtime without blocking readers.
package riskmodel
