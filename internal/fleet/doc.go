// Package fleet runs one device operation across many devices concurrently.
//
// RunAll gives every device its own task on a bounded errgroup. Tasks never
// return errors to the group and panics are recovered, so one bad device
// cannot stop the rest. Results come back in input order:
//
//	results := fleet.NewOrchestrator().RunAll(ctx, reg.Devices(), fleet.Backup(client))
//	fmt.Printf("%d/%d backed up\n", fleet.Succeeded(results), len(results))
//
// Command, Backup, and Restore build the operations used by the CLI.
package fleet
