package config

import "os"

var flagArgs = func() []string {
	return os.Args[1:]
}
