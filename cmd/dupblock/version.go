package main

import "runtime/debug"

// version is set at build time with -ldflags "-X main.version=..."
var version = ""

func getVersionString() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
