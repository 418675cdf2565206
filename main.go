// Public domain.

package main

import "github.com/xtalsym/xtalsym/internal/xsprog"

func main() {
	xsprog.Main()
}
