// Package errors provides structured, actionable error messages for vbind.
//
// Every error carries a stable code that maps to a category and a short
// message:
//   - config: construction-time failures (prop types, duplicate names,
//     missing required props, invalid vbind.json). These are fatal.
//   - binding: template expression failures and malformed directives.
//   - runtime: live page failures (unknown element or global).
//   - cli: invalid command line input.
//
// # Usage
//
//	err := errors.New(errors.CodeRequiredMissing).
//	    WithDetailf("props.%s is required", "title")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E105: Required prop missing
//	//
//	//   props.title is required
package errors
