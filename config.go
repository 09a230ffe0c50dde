package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	SRC_SUFFIX = ".ml"
	IR_SUFFIX  = ".ll"
	OBJ_SUFFIX = ".o"

	RUNTIME_DIR = "runtime"
	BUILD_DIR   = "build"

	OS_WINDOWS = "windows"

	C_STD = "-std=c11"
	FPIC  = "-fPIC"

	cacheEnv        = "MLCACHE"
	ccEnv           = "CC"
	runtimeMarchEnv = "MLANG_MARCH"
)

// OPT_LEVEL is used for the runtime and for release builds of programs.
var OPT_LEVEL = "-O2"

// CC compiles the embedded runtime.
var CC = envOr(ccEnv, "clang")

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// marchFlag returns the -march flag for the runtime build, or "" for a
// portable build. MLANG_MARCH may hold a bare arch or a full flag.
func marchFlag() string {
	march := strings.TrimSpace(os.Getenv(runtimeMarchEnv))
	if march == "" || strings.HasPrefix(march, "-march=") {
		return march
	}
	return "-march=" + march
}

// defaultMLCache returns MLCACHE if it is set, otherwise the per-user
// cache directory for windows, mac and linux.
func defaultMLCache() string {
	if env := os.Getenv(cacheEnv); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	var mlcache string
	switch runtime.GOOS {
	case OS_WINDOWS:
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "mlang")
		}
		mlcache = filepath.Join(homeDir, "AppData", "Local", "mlang")

	case "darwin":
		mlcache = filepath.Join(homeDir, "Library", "Caches", "mlang")

	default: // Linux and others
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "mlang")
		}
		mlcache = filepath.Join(homeDir, ".cache", "mlang")
	}
	return mlcache
}
