package main

import "github.com/xelyr/privacy-gateway/cmd"

func main() {
	cmd.Execute()
}
