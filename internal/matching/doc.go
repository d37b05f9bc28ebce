// Package matching finds the calibration frames that correctly reduce a
// processing session's light frames.
//
// For each camera+telescope combination among the lights, the engine queries
// the catalog for darks, flats, and bias frames captured within a proximity
// window of the lights' date range (the exact range plus a configurable
// tolerance), scopes flats to the filters the lights actually used, and
// buckets the candidates by the imaging session that produced them. Groups
// are returned nearest-night first with deterministic tie-breaking.
//
// Matching mutates nothing and caches nothing: the catalog can change at any
// time, so results are recomputed fresh on every request.
package matching
