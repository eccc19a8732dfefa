package main

import (
	"invoiceflow/cmd/invoiceflow/commands"
	"invoiceflow/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
