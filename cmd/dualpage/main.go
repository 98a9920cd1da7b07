// Command dualpage translates HTML pages in place and keeps the original
// text next to each translated block.
package main

func main() {
	execute()
}
