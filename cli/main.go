package main

import "github.com/bvishnuvamsi/Secret-Manager/cli/cmd"

func main() {
	cmd.Execute()
}
