package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

// testDir returns a fresh config dir backed by an empty mock keychain.
func testDir(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	return t.TempDir()
}

// runApp runs the CLI with dir as the config dir and input as stdin.
func runApp(t *testing.T, dir, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(input)

	full := append([]string{appName, "--config-dir", dir}, args...)
	err := app.Run(context.Background(), full)
	return out.String(), err
}

type savedAnswer struct {
	QuestionID   int64  `json:"questionId"`
	QuestionType string `json:"questionType"`
	UserAnswer   string `json:"userAnswer"`
	IsCorrect    int    `json:"isCorrect"`
}

type fakeAPI struct {
	srv   *httptest.Server
	mu    sync.Mutex
	saved []savedAnswer
	fail  bool
	gen   []map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sentence-breaking/skills", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"code":1,"data":[{"id":7,"name":"对话标志法"}]}`))
	})
	mux.HandleFunc("GET /api/sentence-breaking/skills-questions", func(w http.ResponseWriter, _ *http.Request) {
		if f.fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code":1,"data":{"exerciseQuestionsList":[
			{"id":40,"content":"见渔人乃大惊问所从来具答之","answer":"见渔人/乃大惊/问所从来/具答之"}]}}`))
	})
	mux.HandleFunc("POST /api/sentence-breaking/generate-questions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.gen = append(f.gen, body)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"code":1,"data":{"exerciseQuestionsList":[
			{"id":41,"content":"林尽水源便得一山","answer":"林尽水源/便得一山"}]}}`))
	})
	mux.HandleFunc("POST /api/sentence-breaking/answer", func(w http.ResponseWriter, r *http.Request) {
		var a savedAnswer
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad answer", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.saved = append(f.saved, a)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"code":1,"msg":"saved"}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) generated() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.gen...)
}

func (f *fakeAPI) answers() []savedAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedAnswer(nil), f.saved...)
}

func TestApp_Version(t *testing.T) {
	out, err := runApp(t, testDir(t), "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestApp_CreatesConfig(t *testing.T) {
	dir := testDir(t)
	_, err := runApp(t, dir, "", "stats")
	require.NoError(t, err)

	for _, name := range []string{"config.yaml", "data.db"} {
		_, err := os.Stat(dir + "/" + name)
		assert.NoError(t, err, name)
	}
}

func TestScore_Correct(t *testing.T) {
	out, err := runApp(t, testDir(t), "", "score",
		"--sentence", "见渔人乃大惊问所从来具答之",
		"--answer", "见渔人/乃大惊/问所从来/具答之",
		"--breaks", "2,5,9")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "correct", res["verdict"])
	assert.Equal(t, true, res["is_correct"])
	assert.Equal(t, "见渔人，乃大惊，问所从来，具答之", res["text"])
}

func TestScore_MissingYAML(t *testing.T) {
	out, err := runApp(t, testDir(t), "", "--format", "yaml", "score",
		"--sentence", "见渔人乃大惊问所从来具答之",
		"--answer", "见渔人/乃大惊/问所从来/具答之",
		"--breaks", "2,5")
	require.NoError(t, err)
	assert.Contains(t, out, "verdict: incorrect")
	assert.Contains(t, out, "missing:\n    - 9")
}

func TestScore_AIText(t *testing.T) {
	out, err := runApp(t, testDir(t), "", "score", "--source", "ai",
		"--sentence", "学而时习之不亦说乎有朋自远方来不亦乐乎",
		"--answer", "学而时习之，不亦说乎？有朋自远方来，不亦乐乎？",
		"--breaks", "4,8,14")
	require.NoError(t, err)
	assert.Contains(t, out, `"verdict": "correct"`)
}

func TestScore_Unverifiable(t *testing.T) {
	out, err := runApp(t, testDir(t), "", "score",
		"--sentence", "见渔人乃大惊",
		"--answer", "见渔人/乃大怒",
		"--breaks", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"verdict": "unverifiable"`)
	assert.Contains(t, out, `"is_correct": false`)
}

func TestScore_InvalidSource(t *testing.T) {
	_, err := runApp(t, testDir(t), "", "score",
		"--sentence", "见渔人", "--answer", "见渔人", "--source", "x")
	assert.Error(t, err)
}

func TestAuth_SaveStatusClear(t *testing.T) {
	dir := testDir(t)

	out, err := runApp(t, dir, "", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, `"authenticated": false`)

	out, err = runApp(t, dir, "", "auth", "--token", "abcd1234efgh")
	require.NoError(t, err)
	assert.Contains(t, out, "Token saved")

	out, err = runApp(t, dir, "", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, `"authenticated": true`)
	assert.Contains(t, out, "abcd****efgh")
	assert.NotContains(t, out, "abcd1234efgh")

	_, err = runApp(t, dir, "", "auth", "--clear")
	require.NoError(t, err)

	out, err = runApp(t, dir, "", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, `"authenticated": false`)
}

func TestAuth_Grade(t *testing.T) {
	dir := testDir(t)

	out, err := runApp(t, dir, "", "auth", "--grade", "g7")
	require.NoError(t, err)
	assert.Contains(t, out, "Grade set to g7")
	assert.NotContains(t, out, "Token saved")

	out, err = runApp(t, dir, "", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, `"grade_id": "g7"`)
	assert.Contains(t, out, `"authenticated": false`)

	_, err = runApp(t, dir, "", "auth", "--token", "abcd1234efgh")
	require.NoError(t, err)

	out, err = runApp(t, dir, "", "auth")
	require.NoError(t, err)
	assert.Contains(t, out, `"grade_id": "g7"`)
	assert.Contains(t, out, `"authenticated": true`)
}

func TestMaskToken(t *testing.T) {
	assert.Empty(t, maskToken(""))
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestSkills(t *testing.T) {
	f := newFakeAPI(t)
	dir := testDir(t)

	_, err := runApp(t, dir, "", "--api-url", f.srv.URL, "skills")
	assert.Error(t, err, "no token")

	out, err := runApp(t, dir, "", "--api-url", f.srv.URL, "--token", "secret", "skills")
	require.NoError(t, err)
	assert.Contains(t, out, "对话标志法")

	_, err = runApp(t, dir, "", "--api-url", f.srv.URL, "--token", "wrong", "skills")
	assert.Error(t, err)
}

func TestHistoryAndStats_Empty(t *testing.T) {
	dir := testDir(t)

	out, err := runApp(t, dir, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = runApp(t, dir, "", "stats")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = runApp(t, dir, "", "history", "--source", "bogus")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	dir := testDir(t)
	_, err := runApp(t, dir, "t 2 5 9\ns\nq\n", "practice", "--offline")
	require.NoError(t, err)

	out, err := runApp(t, dir, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	out, err = runApp(t, dir, "", "history")
	require.NoError(t, err)
	assert.NotEqual(t, "[]\n", out)

	out, err = runApp(t, dir, "y\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset complete.")

	out, err = runApp(t, dir, "", "history")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}
