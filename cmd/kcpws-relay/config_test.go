// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyModeProfiles(t *testing.T) {
	cases := []struct {
		mode                                  string
		noDelay, interval, resend, noCongest int
	}{
		{"normal", 0, 40, 2, 1},
		{"fast", 0, 30, 2, 1},
		{"fast2", 1, 20, 2, 1},
		{"fast3", 1, 10, 2, 1},
	}
	for _, tc := range cases {
		cfg := &Config{Mode: tc.mode}
		applyMode(cfg)
		if cfg.NoDelay != tc.noDelay || cfg.Interval != tc.interval || cfg.Resend != tc.resend || cfg.NoCongest != tc.noCongest {
			t.Errorf("mode %q: got (%d,%d,%d,%d), want (%d,%d,%d,%d)",
				tc.mode, cfg.NoDelay, cfg.Interval, cfg.Resend, cfg.NoCongest,
				tc.noDelay, tc.interval, tc.resend, tc.noCongest)
		}
	}
}

func TestApplyModeUnknownLeavesFieldsUntouched(t *testing.T) {
	cfg := &Config{Mode: "bogus", NoDelay: 9, Interval: 99, Resend: 9, NoCongest: 9}
	applyMode(cfg)
	if cfg.NoDelay != 9 || cfg.Interval != 99 || cfg.Resend != 9 || cfg.NoCongest != 9 {
		t.Errorf("unknown mode mutated fields: %+v", cfg)
	}
}

func TestParseJSONConfigOverridesFlags(t *testing.T) {
	cfg := &Config{
		Listen: ":1234",
		Key:    "flag-default-key",
		MTU:    1350,
		Quiet:  false,
	}

	path := filepath.Join(t.TempDir(), "override.json")
	body, err := json.Marshal(map[string]any{
		"key":   "json-key",
		"mtu":   1000,
		"quiet": true,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := parseJSONConfig(cfg, path); err != nil {
		t.Fatalf("parseJSONConfig: %v", err)
	}

	if cfg.Key != "json-key" {
		t.Errorf("Key = %q, want json-key (file should override flag default)", cfg.Key)
	}
	if cfg.MTU != 1000 {
		t.Errorf("MTU = %d, want 1000", cfg.MTU)
	}
	if !cfg.Quiet {
		t.Error("Quiet = false, want true from file")
	}
	if cfg.Listen != ":1234" {
		t.Errorf("Listen = %q, want unchanged :1234 (file didn't set it)", cfg.Listen)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	cfg := &Config{}
	if err := parseJSONConfig(cfg, filepath.Join(t.TempDir(), "does-not-exist.json")); err == nil {
		t.Error("expected error for missing config file, got nil")
	}
}
