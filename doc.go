// Package duct builds and runs composable subprocess expressions.
//
// An Expr is an immutable value describing a single external program
// (Cmd, Sh) or a composition of two Exprs (Pipe, Then) or an isolation
// boundary around one (Subshell). Building an Expr never launches
// anything; only Run or Read does.
//
//	out, err := duct.Sh(`head -c 3 /dev/zero`).Pipe(duct.Cmd("sed", "s/./a/g")).Read()
package duct
