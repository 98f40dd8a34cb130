// Package registry holds the set of known Tasmota devices and persists it to disk.
//
// The registry is a JSON object mapping each device address to its stored data.
// Today the only stored key is "config", the base64-encoded configuration blob
// downloaded from the device by a backup:
//
//	{
//	    "192.168.1.20": {
//	        "config": "aGVsbG8..."
//	    },
//	    "192.168.1.21": {}
//	}
//
// # Loading
//
// Load is best-effort. A missing file yields an empty registry, and so does a
// file that cannot be read or parsed (a warning is logged with ErrCorrupt).
// Loading never fails the caller.
//
// # Saving
//
// Save rewrites the whole file from the in-memory set. The write goes through a
// temporary file in the same directory followed by a rename.
//
// # Usage Example
//
//	reg := registry.Load("devices.json")
//
//	added := reg.Merge(found)
//	fmt.Printf("%d new device(s)\n", added)
//
//	if err := reg.Save("devices.json"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// A Registry is not safe for concurrent mutation. The fleet orchestrator may
// mutate the Data of distinct devices concurrently; each device is owned by a
// single task at a time.
package registry
