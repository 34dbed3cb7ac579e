package dupblock

// This file holds small helpers the command line uses to initialise the package

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// LogDebugFlags logs the enabled debug flags at verbose level 1
func LogDebugFlags() {
	if globalVerboseLevel == 0 || len(debugFlags) == 0 {
		return
	}
	var enabled []string
	for name, on := range debugFlags {
		if on {
			enabled = append(enabled, name)
		}
	}
	VerboseLog(1, "Debug flags enabled: %v", enabled)
}

// GetDebugEnabled returns whether a debug flag is enabled - public alternative to IsDebugEnabled
func GetDebugEnabled(flag string) bool {
	return IsDebugEnabled(flag)
}

// GetVerbose returns the current verbose level - public alternative
func GetVerbose() int {
	return GetVerboseLevel()
}
