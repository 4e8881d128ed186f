package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
	"github.com/MeKo-Tech/recode/internal/server"
)

const httpTimeout = 10 * time.Second

// startTestHTTPServer serves the bundle set up by the scenario in process.
func (testCtx *TestContext) startTestHTTPServer(rl server.RateLimitConfig) error {
	if testCtx.ModelsDir == "" {
		return errors.New("no model bundle set up")
	}
	testCtx.stopTestHTTPServer()

	srv, err := server.NewServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 1,
		TimeoutSec:  10,
		Bundle:      models.ResolveBundle(testCtx.ModelsDir, ""),
		Recognizer:  recognizer.DefaultConfig(),
		RateLimit:   rl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPTestServer = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}
}

func (testCtx *TestContext) theDecodeServerIsRunning() error {
	return testCtx.startTestHTTPServer(server.RateLimitConfig{})
}

func (testCtx *TestContext) theDecodeServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startTestHTTPServer(server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute})
}

func (testCtx *TestContext) do(method, path, contentType string, body []byte) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, testCtx.HTTPTestServer.URL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := testCtx.HTTPTestServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGET(path string) error {
	return testCtx.do(http.MethodGet, path, "", nil)
}

func (testCtx *TestContext) iPOSTTo(path, body string) error {
	return testCtx.do(http.MethodPost, path, "application/json", []byte(body))
}

// lineRequest spells text into an inline matrix.
func (testCtx *TestContext) lineRequest(name, text string) (server.LineRequest, error) {
	if testCtx.Model == nil {
		return server.LineRequest{}, errors.New("no model bundle set up")
	}
	m, err := testCtx.Model.SpellMatrix(text, 2, 0.9)
	if err != nil {
		return server.LineRequest{}, err
	}
	defer m.Release()
	return server.LineRequest{Name: name, Classes: m.NumFeatures(), Outputs: m.Rows()}, nil
}

func (testCtx *TestContext) iPOSTTheMatrixSpellingTo(text, path string) error {
	line, err := testCtx.lineRequest("", text)
	if err != nil {
		return err
	}
	body, err := json.Marshal(line)
	if err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, path, "application/json", body)
}

// iPOSTABatchSpellingTo sends one line per comma separated text.
func (testCtx *TestContext) iPOSTABatchSpellingTo(texts, path string) error {
	var req server.BatchDecodeRequest
	for t := range strings.SplitSeq(texts, ",") {
		t = strings.TrimSpace(t)
		line, err := testCtx.lineRequest(t, t)
		if err != nil {
			return err
		}
		req.Lines = append(req.Lines, line)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, path, "application/json", body)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	return jsonFieldEquals(testCtx.LastHTTPResponse, field, expected)
}

// RegisterServerSteps registers the in-process HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the decode server is running$`, testCtx.theDecodeServerIsRunning)
	sc.Step(`^the decode server is running with a limit of (\d+) requests per minute$`,
		testCtx.theDecodeServerIsRunningWithRateLimit)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST "([^"]*)" with body '([^']*)'$`, testCtx.iPOSTTo)
	sc.Step(`^I POST the matrix spelling "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheMatrixSpellingTo)
	sc.Step(`^I POST a batch spelling "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTABatchSpellingTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
}
