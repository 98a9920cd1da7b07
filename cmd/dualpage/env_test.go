package main

import (
	"errors"
	"strings"
	"testing"
)

// keychain is an in-memory stand-in for the OS keychain and the key env
// variables, installed through the package-level auth hooks.
type keychain struct {
	keys    map[string]string
	env     map[string]string
	prompt  string
	saveErr error
}

func useKeychain(t *testing.T, kc *keychain) {
	t.Helper()
	if kc.keys == nil {
		kc.keys = map[string]string{}
	}
	prevStatus, prevEnv, prevPrompt := getStatus, getEnvKey, promptForKey
	prevSave, prevDelete := saveKey, deleteKey
	t.Cleanup(func() {
		getStatus, getEnvKey, promptForKey = prevStatus, prevEnv, prevPrompt
		saveKey, deleteKey = prevSave, prevDelete
	})

	getStatus = func(svc string) bool { return kc.keys[svc] != "" }
	getEnvKey = func(svc string) (string, bool) {
		v, ok := kc.env[svc]
		return v, ok
	}
	promptForKey = func(string) (string, error) { return kc.prompt, nil }
	saveKey = func(svc, key string) error {
		if kc.saveErr != nil {
			return kc.saveErr
		}
		kc.keys[svc] = key
		return nil
	}
	deleteKey = func(svc string) error {
		delete(kc.keys, svc)
		return nil
	}
}

func TestEnvStatus(t *testing.T) {
	tests := []struct {
		name string
		kc   keychain
		args []string
		want string
	}{
		{
			name: "keychain wins over env",
			kc:   keychain{keys: map[string]string{serviceGemini: "AIzaStored"}, env: map[string]string{serviceGemini: "sk-env-secret"}},
			args: []string{"env", "status"},
			want: "gemini API Key: Found (source=Keychain)",
		},
		{
			name: "env only",
			kc:   keychain{env: map[string]string{serviceOpenAI: "sk-env-secret"}},
			args: []string{"env", "status", "--service", "openai"},
			want: "openai API Key: Found (source=Environment Variable",
		},
		{
			name: "bare env defaults to status",
			kc:   keychain{},
			args: []string{"env"},
			want: "gemini API Key: Not Found",
		},
		{
			name: "service name is case-insensitive",
			kc:   keychain{keys: map[string]string{serviceOpenAI: "sk-stored"}},
			args: []string{"env", "status", "--service", " OpenAI "},
			want: "openai API Key: Found (source=Keychain)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc := tt.kc
			useKeychain(t, &kc)
			out, err := executeCommand(t, tt.args...)
			if err != nil {
				t.Fatalf("command failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q, got: %s", tt.want, out)
			}
			if strings.Contains(out, "sk-env-secret") {
				t.Fatalf("output leaked env key: %s", out)
			}
		})
	}
}

func TestEnvSetupAndDelete(t *testing.T) {
	kc := &keychain{prompt: "  sk-openai-key  "}
	useKeychain(t, kc)

	out, err := executeCommand(t, "env", "setup", "--service", "openai")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if kc.keys[serviceOpenAI] != "sk-openai-key" {
		t.Fatalf("expected trimmed key in keychain, got %q", kc.keys[serviceOpenAI])
	}
	if !strings.Contains(out, "Saved openai API key") {
		t.Fatalf("unexpected setup output: %s", out)
	}

	out, err = executeCommand(t, "env", "delete", "--service", "openai")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := kc.keys[serviceOpenAI]; ok {
		t.Fatalf("key still stored after delete")
	}
	if !strings.Contains(out, "Deleted openai API key") {
		t.Fatalf("unexpected delete output: %s", out)
	}
}

func TestEnvSetup_Errors(t *testing.T) {
	tests := []struct {
		name string
		kc   keychain
		args []string
		want string
	}{
		{"blank key", keychain{prompt: "   "}, []string{"env", "setup"}, "API key is required"},
		{"keychain failure", keychain{prompt: "AIzaKey", saveErr: errors.New("locked")}, []string{"env", "setup"}, "error saving key: locked"},
		{"unknown service", keychain{prompt: "x"}, []string{"env", "setup", "--service", "deepl"}, `invalid service "deepl"`},
		{"positional key", keychain{}, []string{"env", "setup", "sk-should-not-be-allowed"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc := tt.kc
			useKeychain(t, &kc)
			out, err := executeCommand(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error, got output: %s", out)
			}
			if !strings.Contains(err.Error()+out, tt.want) {
				t.Fatalf("expected %q, got err=%v out=%s", tt.want, err, out)
			}
			if len(kc.keys) != 0 {
				t.Fatalf("nothing should be saved, got %v", kc.keys)
			}
		})
	}
}
