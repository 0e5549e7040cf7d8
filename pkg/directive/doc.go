// Package directive compiles template attributes into live bindings.
//
// Recognized attributes:
//
//	v-text="expr | filter(args)"  text content
//	v-model="path"                two-way binding of input and textarea values
//	v-class="{'name': expr}"      class toggles, re-evaluated on every class sweep
//	v-attr="{'name': expr}"       attributes, re-evaluated on every attribute sweep
//	v-show="expr"                 visibility, re-evaluated on every show sweep
//	v-on="click=handler, input=other(1, 2)"
//	v-for="(item, index) in list" repeated fragment
//	v-data="name = expr; other = expr"
//	v-array="list"                list-typed field for server-rendered assignment
//	v-no                          skip the initial text assignment
//
// Text and model bindings observe the path their expression names (list
// aliases resolved), so only mutations of that path re-render them. All
// binding attributes are stripped once compiled.
package directive
