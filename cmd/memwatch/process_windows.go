package main

import (
	"memwatch/process"
	"memwatch/process_windows"
)

func newOpener() process.ProcessOpener {
	return process_windows.NewHelper()
}
