// Package preflight provides readiness checks for the filesystem paths and
// databases starstage depends on.
//
// The CLI "starstage doctor" command runs RunAll and renders the results;
// individual checks are also used before destructive staging operations so a
// doomed run fails fast instead of partway through a copy.
package preflight
