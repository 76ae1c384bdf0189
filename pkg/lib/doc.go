// Package lib provides a Go SDK to compile Solidity and run JavaScript in the
// codesbx sandbox, in process.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Compile(ctx, "contract Counter { uint256 public n; }")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !res.Success {
//	    fmt.Println(res.Errors)
//	}
//
//	out, _ := client.Execute(ctx, `console.log("hello")`)
//	fmt.Println(out.Output)
//
// # Compiler runners
//
//   - [CompilerRunnerSolc]: the solc binary of the host (default).
//   - [CompilerRunnerDocker]: solc in a throwaway container without network.
//   - [CompilerRunnerFake]: synthetic artifacts, for tests.
//
// # Run log
//
// Every compile and execute call is recorded (hash and size of the source,
// outcome and duration) and can be read back with [Client.ListRuns] and
// [Client.GetRun]. Select the storage with [Config].RunLog.
//
// # HTTP API
//
// [Client.Handler] returns the editor HTTP API so it can be mounted in a host
// application.
//
// # Error Handling
//
// Compiler diagnostics and script errors are part of the results. Returned
// errors can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrNotValid]: Invalid input (e.g. empty source) or configuration.
package lib
