// gcpinventory - Google Cloud inventory collector
// Collect. Enrich. Emit.
package main

func main() {
	Execute()
}
