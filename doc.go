// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package polyslice implements array-function dispatch over a
	reference dense array namespace. Code written against the
	reference namespace (package dense) can be run, unchanged, over
	other array representations: chunked arrays, gonum vectors, or
	any type whose owner registers a backend adapter.

	The pieces fit together as follows:

	Package dense is the reference namespace: a table of named
	functions (sum, mean, concatenate, ...) over *dense.Array.

	Package dispatch holds the type registry. Array libraries register
	a backend with dispatch.Register (or dispatch.RegisterLazy, which
	defers registration until the defining package is loaded). The
	dispatcher inspects the arguments of a call, looks up the backend
	for each foreign array type, and routes the call to that backend
	if it implements the function, or else to the reference
	implementation. Per-function overrides take precedence over
	backends. dispatch.Polymorphic patches the reference namespace for
	the duration of a call, so that library code calling dense.Call
	routes through the dispatcher.

	Package chunked and package backend/gonumarray are backends.

	Package crossframe is the analogous registry for data frames: a
	common Frame interface over local frames (package frame) and
	partitioned lazy frames (package dframe).

	Packages aggregate and report build column summaries over any
	registered frame backend, and package dataset loads frames from
	CSV files and SQL queries.

	The command cmd/polyslice exposes these as a tool.
*/
package polyslice
