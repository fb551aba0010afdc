// spikectl is a terminal client for the Spike backend.
package main

func main() {
	Execute()
}
