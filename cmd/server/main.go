package main

import "github.com/facilityhub/dept-chat/cmd"

func main() {
	cmd.Execute()
}
