// Package errors provides structured, actionable error messages for aadt.
//
// Every failure the toolkit surfaces to a user is an *Error carrying:
//   - a registered code (e.g. "E110") with a short message
//   - a category that identifies the failing concern
//   - optional detail, a fix suggestion, and the wrapped cause
//
// # Error Categories
//
//   - version: the release version could not be determined
//   - build: invalid distribution target or a failed build/package phase
//   - config: the addon.json document is unreadable, malformed, or invalid
//   - cli: the command line was used outside an add-on project
//   - publish: an artifact upload failed
//
// # Usage
//
//	err := errors.New("E112").
//	    WithDetail("git archive exited with status 128").
//	    Wrap(cause)
//
//	if errors.IsCategory(err, errors.CategoryBuild) {
//	    fmt.Println(err.FormatCompact())
//	}
package errors
