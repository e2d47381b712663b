package main

import "github.com/nsxzhou1114/bookmarks-api/cmd"

func main() {
	cmd.Execute()
}
