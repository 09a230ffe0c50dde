package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/oklog/ulid/v2"
)

// buildOptions controls how an executable is produced from module IR.
type buildOptions struct {
	debug  bool
	output string
}

// newBuildDir creates a fresh per-invocation directory under the cache so
// concurrent builds never share intermediate files.
func newBuildDir(cacheDir string) (string, error) {
	dir := filepath.Join(cacheDir, BUILD_DIR, ulid.Make().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}
	return dir, nil
}

// buildExecutable writes ir into a build dir and turns it into an
// executable linked against the runtime objects.
func buildExecutable(status io.Writer, cacheDir, name, ir string, rtObjs []string, opts buildOptions) error {
	buildDir, err := newBuildDir(cacheDir)
	if err != nil {
		return err
	}
	if opts.debug {
		fmt.Fprintf(status, "Keeping build dir: %s\n", buildDir)
	} else {
		defer os.RemoveAll(buildDir)
	}

	llFile := filepath.Join(buildDir, name+IR_SUFFIX)
	if err := os.WriteFile(llFile, []byte(ir), 0644); err != nil {
		return fmt.Errorf("write IR to %s: %w", llFile, err)
	}
	return genBinary(buildDir, name, llFile, rtObjs, opts)
}

// genBinary runs opt, llc and the linker. Debug builds skip opt and
// compile at -O0.
func genBinary(buildDir, name, llFile string, rtObjs []string, opts buildOptions) error {
	objFile := filepath.Join(buildDir, name+OBJ_SUFFIX)

	llcLevel := OPT_LEVEL
	if opts.debug {
		llcLevel = "-O0"
	} else {
		optFile := filepath.Join(buildDir, name+".opt"+IR_SUFFIX)
		optCmd := exec.Command("opt", OPT_LEVEL, "-S", llFile, "-o", optFile)
		if output, err := optCmd.CombinedOutput(); err != nil {
			return fmt.Errorf("optimization failed: %s\n%s", err, string(output))
		}
		llFile = optFile
	}

	// Compile to object file
	llcCmd := exec.Command("llc", llcLevel, "-filetype=obj", "-relocation-model=pic", llFile, "-o", objFile)
	if output, err := llcCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("llc compilation failed: %s\n%s", err, string(output))
	}

	var linkArgs []string
	if runtime.GOOS == "darwin" {
		// Mach-O linker wants -dead_strip
		linkArgs = append(linkArgs, "-Wl,-dead_strip")
	} else if runtime.GOOS != OS_WINDOWS {
		// ELF linkers accept --gc-sections
		linkArgs = append(linkArgs, "-Wl,--gc-sections")
	}
	linkArgs = append(linkArgs, objFile)
	linkArgs = append(linkArgs, rtObjs...)
	linkArgs = append(linkArgs, "-o", opts.output)

	clangCmd := exec.Command(CC, linkArgs...)
	if output, err := clangCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("linking failed: %s\n%s", err, string(output))
	}
	return nil
}
