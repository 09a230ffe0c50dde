package main

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// isHashDir reports whether name looks like a runtime cache dir.
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

//go:embed runtime
var runtimeFS embed.FS

// artifact is what the runtime sources are compiled into: native objects
// for linking an executable, or textual IR for the JIT.
type artifact struct {
	suffix string
	flags  []string
}

var (
	objArtifact = artifact{suffix: OBJ_SUFFIX, flags: []string{"-c"}}
	irArtifact  = artifact{suffix: IR_SUFFIX, flags: []string{"-S", "-emit-llvm"}}
)

// runtimeCompileFlags returns the compiler flags used for runtime compilation.
// Used by both compileRuntime and metadataHash to keep them in sync.
func runtimeCompileFlags() []string {
	flags := []string{OPT_LEVEL, C_STD}
	if march := marchFlag(); march != "" {
		flags = append(flags, march)
	}
	if runtime.GOOS != OS_WINDOWS {
		flags = append(flags, FPIC)
	}
	return flags
}

// metadataHash hashes compiler settings and platform that affect runtime compilation.
func metadataHash(h hash.Hash) {
	h.Write([]byte(CC))
	for _, flag := range runtimeCompileFlags() {
		h.Write([]byte(flag))
	}
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))
}

// runtimeInfo hashes the compile settings and every embedded runtime file.
// srcCount is the number of top-level .c files, one artifact each. The
// short hash names the cache dir and the full hash is stored inside it.
func runtimeInfo() (shortHash, fullHash string, srcCount int, err error) {
	h := sha256.New()
	metadataHash(h)
	err = fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			data, readErr := runtimeFS.ReadFile(path)
			if readErr != nil {
				return readErr
			}
			h.Write(data)
			// Only count top-level .c files (e.g., "runtime/cast.c")
			if strings.HasSuffix(path, ".c") && filepath.Dir(path) == RUNTIME_DIR {
				srcCount++
			}
		}
		return nil
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("walk embedded runtime: %w", err)
	}
	fullHash = hex.EncodeToString(h.Sum(nil))
	shortHash = fullHash[:8]
	return shortHash, fullHash, srcCount, nil
}

// extractRuntime writes the embedded runtime files to rtDir.
func extractRuntime(rtDir string) error {
	if err := os.MkdirAll(rtDir, 0755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	return fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		relPath, _ := filepath.Rel(RUNTIME_DIR, path)
		destPath := filepath.Join(rtDir, relPath)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		data, err := runtimeFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}
		return os.WriteFile(destPath, data, 0644)
	})
}

// compileRuntime compiles .c files in rtDir into one art file each and
// returns their paths.
func compileRuntime(rtDir string, art artifact) ([]string, error) {
	rtSrcs, err := filepath.Glob(filepath.Join(rtDir, "*.c"))
	if err != nil {
		return nil, fmt.Errorf("glob runtime sources: %w", err)
	}
	if len(rtSrcs) == 0 {
		return nil, fmt.Errorf("no runtime .c files found under %s", rtDir)
	}

	var outs []string
	for _, src := range rtSrcs {
		out := filepath.Join(rtDir, filepath.Base(src)+art.suffix)
		args := append(runtimeCompileFlags(), art.flags...)
		args = append(args, "-I", rtDir, src, "-o", out)
		if output, err := exec.Command(CC, args...).CombinedOutput(); err != nil {
			return nil, fmt.Errorf("compile %s: %w\n%s", src, err, output)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// cleanupOldRuntimes removes cache dirs older than minAge seconds, always
// keeping the keep most recent ones.
func cleanupOldRuntimes(status io.Writer, runtimeDir string, keep int, minAge int64) {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil || len(entries) <= keep {
		return
	}

	// Filter to hash directories (8-char hex names) with their mod times
	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}

	if len(dirs) <= keep {
		return
	}

	// Sort by mtime ascending (oldest first), remove oldest if older than minAge
	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(runtimeDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Fprintf(status, "warning: failed to remove old runtime %s: %v\n", path, err)
			}
		}
	}
}

// prepareRuntime extracts embedded runtime files and compiles them to art.
// Uses a hash-based directory to cache compiled files across runs.
// A file lock ensures concurrent processes see either fully compiled runtime or build it.
// Status lines go to status so they never mix with program output.
func prepareRuntime(status io.Writer, cacheDir string, art artifact) ([]string, error) {
	runtimeDir := filepath.Join(cacheDir, RUNTIME_DIR)
	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}

	lock := flock.New(filepath.Join(runtimeDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire runtime lock: %w", err)
	}
	defer lock.Unlock()

	shortHash, fullHash, srcCount, err := runtimeInfo()
	if err != nil {
		return nil, err
	}
	rtDir := filepath.Join(runtimeDir, shortHash)
	hashFile := filepath.Join(rtDir, ".hash")

	// Check if already compiled (verify artifact count and full hash match)
	if outs, err := filepath.Glob(filepath.Join(rtDir, "*"+art.suffix)); err == nil && len(outs) == srcCount {
		// Verify full hash to detect collisions
		if storedHash, err := os.ReadFile(hashFile); err == nil && string(storedHash) == fullHash {
			fmt.Fprintf(status, "Using cached runtime: %s\n", rtDir)
			return outs, nil
		}
		// Hash collision or corrupted cache - rebuild
		fmt.Fprintf(status, "Runtime hash mismatch, rebuilding: %s\n", rtDir)
		os.RemoveAll(rtDir)
	}

	// Cleanup old runtime versions (keep 5 most recent, only delete if older than 1 week)
	cleanupOldRuntimes(status, runtimeDir, 5, 7*24*60*60)

	fmt.Fprintf(status, "Compiling runtime: %s\n", rtDir)
	if err := extractRuntime(rtDir); err != nil {
		return nil, err
	}
	outs, err := compileRuntime(rtDir, art)
	if err != nil {
		return nil, err
	}
	// Store full hash after successful compilation (acts as completion marker)
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, fmt.Errorf("write hash file: %w", err)
	}
	return outs, nil
}
