package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oukeidos/dualpage/internal/config"
	"github.com/oukeidos/dualpage/internal/prompt"
	"github.com/oukeidos/dualpage/internal/translator"
	"github.com/spf13/cobra"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDictCheck_ListsEntries(t *testing.T) {
	path := writeTemp(t, "dict.yaml", "Tokyo: Edo\nGo:\n")

	out, err := executeCommand(t, "dict", "check", path)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	for _, want := range []string{"Entries: 2", "Tokyo -> Edo", "Go (kept as is)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestDictCheck_ProtectsText(t *testing.T) {
	path := writeTemp(t, "dict.json", `{"Tokyo": "Edo"}`)

	out, err := executeCommand(t, "dict", "check", path, "--text", "Hello Tokyo")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "Protected: Hello @%1#$") {
		t.Fatalf("expected placeholder in output, got: %s", out)
	}
	if !strings.Contains(out, "Recovered: Hello Edo") {
		t.Fatalf("expected replacement in output, got: %s", out)
	}

	out, err = executeCommand(t, "dict", "check", path, "--text", "Visit TOKYO")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "Protected: Visit @%1#$") {
		t.Fatalf("expected case-insensitive match, got: %s", out)
	}
}

func TestDictCheck_RejectsBrokenFile(t *testing.T) {
	path := writeTemp(t, "dict.yaml", "- a\n- b\n")
	if _, err := executeCommand(t, "dict", "check", path); err == nil {
		t.Fatalf("expected error for a list dictionary")
	}
}

func TestRules_ListAndMatch(t *testing.T) {
	out, err := executeCommand(t, "rules")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "twitter") || !strings.Contains(out, "github") {
		t.Fatalf("expected built-in rules, got: %s", out)
	}

	out, err = executeCommand(t, "rules", "--match", "https://news.ycombinator.com/item?id=1")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "ycombinator") || strings.Contains(out, "twitter") {
		t.Fatalf("expected only the matching rule, got: %s", out)
	}

	out, err = executeCommand(t, "rules", "--match", "https://example.com/", "--yaml")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "No rule matches") {
		t.Fatalf("expected no match, got: %s", out)
	}
}

func TestRules_UserRuleFirst(t *testing.T) {
	rule := `{"name": "mine", "hostname": "docs.example.com", "selectors": ["article"]}`
	out, err := executeCommand(t, "rules", "--rule", rule, "--yaml")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "- name: mine") {
		t.Fatalf("expected user rule first, got: %s", out)
	}
}

func TestRules_InvalidMatchURL(t *testing.T) {
	if _, err := executeCommand(t, "rules", "--match", "not a url"); err == nil {
		t.Fatalf("expected invalid URL error")
	}
}

func TestRestoreCheck_Passes(t *testing.T) {
	page := `<html lang="ja"><head><title>Title</title></head><body>
<h1>Heading</h1>
<p>First <b>bold</b> paragraph.</p>
<input placeholder="Search">
<ul><li>One</li><li>Two</li></ul>
</body></html>`
	path := writeTemp(t, "page.html", page)

	out, err := executeCommand(t, "restore-check", path, "--target", "fr")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Restore check passed") {
		t.Fatalf("expected pass, got: %s", out)
	}
}

func TestRestoreCheck_RejectsExtension(t *testing.T) {
	path := writeTemp(t, "page.txt", "<p>x</p>")
	_, err := executeCommand(t, "restore-check", path)
	if err == nil || !strings.Contains(err.Error(), `unsupported input extension ".txt"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func engineFlagsCommand(t *testing.T, f *engineFlags, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addEngineFlags(cmd, f)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestLoadEngineConfig_FlagsOverrideFile(t *testing.T) {
	path := writeTemp(t, "config.yaml", "target_language: de\ntranslator_service: openai\ndual_style: highlight\n")

	var f engineFlags
	cmd := engineFlagsCommand(t, &f, "--config", path, "--target", "Japanese", "--no-dual")

	cfg, err := loadEngineConfig(cmd, &f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TargetLanguage != "ja" {
		t.Fatalf("target = %q, want ja", cfg.TargetLanguage)
	}
	if cfg.TranslatorService != "openai" {
		t.Fatalf("service = %q, want openai", cfg.TranslatorService)
	}
	if cfg.DualStyle != "highlight" {
		t.Fatalf("dual style = %q, want highlight", cfg.DualStyle)
	}
	if cfg.ShowDualLanguage {
		t.Fatalf("expected --no-dual to disable the bilingual view")
	}
}

func TestLoadEngineConfig_RejectsUnknownService(t *testing.T) {
	var f engineFlags
	cmd := engineFlagsCommand(t, &f, "--service", "deepl")

	if _, err := loadEngineConfig(cmd, &f); err == nil || !strings.Contains(err.Error(), "invalid service") {
		t.Fatalf("expected invalid service error, got %v", err)
	}
}

func TestBuildBackends_SkipsAlternateWithoutKey(t *testing.T) {
	_, restore := withKeyStubs(t, false, "", "", "")
	defer restore()
	getKey = func(service string, _ bool) (string, string) {
		if service == serviceOpenAI {
			return "sk-test", "Keychain"
		}
		return "", ""
	}

	cfg := config.Default()
	cfg.TranslatorService = serviceOpenAI
	cfg.AlternateService = serviceGemini

	router, services, err := buildBackends(context.Background(), cfg, backendOptions{
		openaiModel: "gpt-4.1-mini",
		chunkSize:   translator.DefaultChunkSize,
		concurrency: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := router.Services(); len(got) != 1 || got[0] != serviceOpenAI {
		t.Fatalf("services = %v, want [openai]", got)
	}
	if len(services) != 1 || services[0].model != "gpt-4.1-mini" {
		t.Fatalf("unexpected services: %+v", services)
	}
}

func TestBuildBackends_PrimaryKeyRequired(t *testing.T) {
	_, restore := withKeyStubs(t, false, "", "", "")
	defer restore()

	cfg := config.Default()
	cfg.TranslatorService = serviceOpenAI
	if _, _, err := buildBackends(context.Background(), cfg, backendOptions{chunkSize: 1, concurrency: 1}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestPrintUsageStats_NoTokens(t *testing.T) {
	tr, err := translator.NewTranslator(&translator.MockModel{}, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	var buf bytes.Buffer
	printUsageStats(&buf, []serviceBackend{{name: serviceOpenAI, model: "gpt-4.1", tr: tr}}, 1500*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "Time: 1.5s") || !strings.Contains(out, "Service: openai (model gpt-4.1)") {
		t.Fatalf("unexpected stats output: %s", out)
	}
	if strings.Contains(out, "Estimated Cost") {
		t.Fatalf("expected no cost line without token usage: %s", out)
	}
}

func TestTranslate_NeverTranslateSiteNeedsConfirmation(t *testing.T) {
	cfgPath := writeTemp(t, "config.yaml", "never_translate_sites:\n  - news.example.org\n")
	in := writeTemp(t, "in.html", "<p>Hello</p>")
	out := filepath.Join(t.TempDir(), "out.html")

	_, err := executeCommand(t, "translate", in, out, "--config", cfgPath, "--url", "https://news.example.org/a")
	if !errors.Is(err, prompt.ErrNonInteractive) {
		t.Fatalf("expected ErrNonInteractive, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output should not be written, stat err=%v", statErr)
	}
}
