package config

import "os"

func IsDebug() bool {
	return os.Getenv("OMNIMIND_DEBUG") == "1"
}
