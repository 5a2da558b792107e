// Command molt migrates source code off deprecated constructs and away
// call sites that still use them, based on `replace_me`-marked
// definitions (see pkg/marker).
package main

func main() {
	Execute()
}
