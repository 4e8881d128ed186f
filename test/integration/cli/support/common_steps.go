package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/netio"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

const commandTimeout = 30 * time.Second

// aModelBundleWithSymbols writes a bundle whose unicharset holds the space
// separated symbols and points RECODE_MODELS_DIR at it.
func (testCtx *TestContext) aModelBundleWithSymbols(symbols string) error {
	return testCtx.aModelBundleWithSymbolsAndWords(symbols, "")
}

func (testCtx *TestContext) aModelBundleWithSymbolsAndWords(symbols, words string) error {
	dir := filepath.Join(testCtx.TempDir, "models")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}
	if err := writeLines(filepath.Join(dir, models.UnicharsetFile), strings.Fields(symbols)); err != nil {
		return err
	}
	if w := strings.Fields(words); len(w) > 0 {
		if err := writeLines(filepath.Join(dir, models.WordListFile), w); err != nil {
			return err
		}
	}

	model, err := recognizer.LoadModel(models.ResolveBundle(dir, ""), recognizer.ModelOptions{})
	if err != nil {
		return fmt.Errorf("failed to load test bundle: %w", err)
	}
	testCtx.Model = model
	testCtx.ModelsDir = dir
	testCtx.AddEnvVar(models.EnvModelsDir, dir)
	return nil
}

func (testCtx *TestContext) noModelBundleIsAvailable() error {
	dir := filepath.Join(testCtx.TempDir, "no-models")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	testCtx.ModelsDir = dir
	testCtx.AddEnvVar(models.EnvModelsDir, dir)
	return nil
}

func writeLines(path string, lines []string) error {
	body := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// aMatrixFileSpelling saves a matrix in which the network is confident of
// every code of text.
func (testCtx *TestContext) aMatrixFileSpelling(name, text string) error {
	if testCtx.Model == nil {
		return errors.New("no model bundle set up")
	}
	m, err := testCtx.Model.SpellMatrix(text, 2, 0.9)
	if err != nil {
		return fmt.Errorf("failed to spell %q: %w", text, err)
	}
	defer m.Release()

	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return netio.SaveFile(path, m)
}

func (testCtx *TestContext) aMatrixFileContaining(name, content string) error {
	path := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// iRunCommand runs command in TempDir with the scenario environment.
func (testCtx *TestContext) iRunCommand(command string) error {
	return testCtx.run(command, "")
}

func (testCtx *TestContext) iRunCommandWithInputFrom(command, input string) error {
	return testCtx.run(command, testCtx.path(input))
}

func (testCtx *TestContext) run(command, stdinPath string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	if stdinPath != "" {
		f, err := os.Open(stdinPath) //nolint:gosec // G304: scenario file
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		cmd.Stdin = f
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastStdout = stdout.String()
	testCtx.LastOutput = stdout.String() + stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return nil
}

// theJSONFieldShouldBe compares the value at a dotted path in the command's
// standard output. Numeric path parts index arrays.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	return jsonFieldEquals(testCtx.LastStdout, field, expected)
}

func jsonFieldEquals(body, field, expected string) error {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return fmt.Errorf("not valid JSON: %w\nBody: %s", err, body)
	}
	got, err := lookupField(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("field %q is %q, expected %q", field, s, expected)
	}
	return nil
}

func lookupField(v any, field string) (any, error) {
	for part := range strings.SplitSeq(field, ".") {
		switch cur := v.(type) {
		case map[string]any:
			next, ok := cur[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found", field)
			}
			v = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(cur) {
				return nil, fmt.Errorf("field %q: bad index %q", field, part)
			}
			v = cur[i]
		default:
			return nil, fmt.Errorf("field %q: %q is not an object or array", field, part)
		}
	}
	return v, nil
}

func (testCtx *TestContext) theFileShouldExist(filename string) error {
	path := testCtx.path(testCtx.substitute(filename))
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s does not exist: %w", filename, err)
	}
	testCtx.LastOutputFile = path
	return nil
}

func (testCtx *TestContext) theFileShouldContain(filename, expected string) error {
	path := testCtx.path(testCtx.substitute(filename))
	content, err := os.ReadFile(path) //nolint:gosec // G304: scenario file
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if !strings.Contains(string(content), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", filename, expected, content)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substitute(value))
	return nil
}

// RegisterCommonSteps registers the bundle, command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a model bundle with symbols "([^"]*)"$`, testCtx.aModelBundleWithSymbols)
	sc.Step(`^a model bundle with symbols "([^"]*)" and words "([^"]*)"$`, testCtx.aModelBundleWithSymbolsAndWords)
	sc.Step(`^no model bundle is available$`, testCtx.noModelBundleIsAvailable)
	sc.Step(`^a matrix file "([^"]*)" spelling "([^"]*)"$`, testCtx.aMatrixFileSpelling)
	sc.Step(`^a matrix file "([^"]*)" containing "([^"]*)"$`, testCtx.aMatrixFileContaining)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)

	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with input from "([^"]*)"$`, testCtx.iRunCommandWithInputFrom)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
