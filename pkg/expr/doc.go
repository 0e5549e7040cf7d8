// Package expr evaluates binding expressions and event handler statements.
//
// Expressions are Starlark expressions evaluated against an explicit
// environment: the keys of the owning reactive.Instance, a function table of
// methods and filters, and the lexical locals of the binding (v-for aliases,
// v-data declarations, the handler's event). Nothing else is reachable.
//
// Statements are parsed with the Starlark parser and interpreted here so that
// assignments to instance keys write through the reactive layer:
//
//	count += 1
//	user.name = "ann"; list.append({"name": "x"})
//	if count > 3: count = 0
//
// The literals true, false and null are predeclared next to Starlark's own
// True, False and None.
package expr
