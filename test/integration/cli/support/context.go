package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/recode/internal/recognizer"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand    string
	LastOutput     string
	LastStdout     string
	LastError      error
	LastExitCode   int
	LastStartTime  time.Time
	LastDuration   time.Duration
	LastOutputFile string

	// Test environment
	TempDir   string
	ModelsDir string
	EnvVars   []string
	Model     *recognizer.Model

	// Server management
	HTTPTestServer *httptest.Server

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string

	CreatedFiles []string
}

// NewTestContext creates a scenario context rooted in a fresh temp dir.
// HOME and XDG_CONFIG_HOME point into it so no user configuration leaks
// into commands.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "recode-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		TempDir:         tempDir,
		LastHTTPHeaders: map[string]string{},
	}
	ctx.AddEnvVar("HOME", tempDir)
	ctx.AddEnvVar("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))
	return ctx, nil
}

// Cleanup stops the test server and removes every scenario artifact.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	testCtx.stopTestHTTPServer()

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TrackFile adds a file outside TempDir to be removed after the scenario.
func (testCtx *TestContext) TrackFile(filename string) {
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, testCtx.path(filename))
}

// GetTempFile returns a fresh path inside TempDir.
func (testCtx *TestContext) GetTempFile(suffix string) string {
	return filepath.Join(testCtx.TempDir, fmt.Sprintf("test-%d%s", time.Now().UnixNano(), suffix))
}

// path resolves name relative to TempDir, which is also the working
// directory of every command.
func (testCtx *TestContext) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute expands {tmp} and {models} placeholders.
func (testCtx *TestContext) substitute(s string) string {
	return strings.NewReplacer("{tmp}", testCtx.TempDir, "{models}", testCtx.ModelsDir).Replace(s)
}
