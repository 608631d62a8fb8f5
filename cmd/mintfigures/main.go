package main

import (
	"mintfigures/cmd/mintfigures/commands"
	"mintfigures/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
