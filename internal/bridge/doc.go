// Package bridge provides the method router and permission gate for the
// extension API.
//
// Every inbound call is answered through a Task, a single-result future
// that completes exactly once. Namespace handlers implement the Handler
// interface and are registered by namespace ID; dispatch resolves the
// handler, vets the caller's declared capability, then executes the
// handler asynchronously. Unloading an extension cancels its lifetime
// context, which completes any outstanding tasks with a Cancelled error.
//
// Example Usage:
//
//	b := bridge.New(logger)
//	b.Register(cookiesProvider)
//	task := b.Dispatch(ext.Context(), sender, "cookies.get", args)
//	result, _ := task.Result(ctx)
package bridge
