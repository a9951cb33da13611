package main

import (
	"memwatch/process"
	"memwatch/process_linux"
)

func newOpener() process.ProcessOpener {
	return process_linux.NewHelper()
}
