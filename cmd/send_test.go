package cmd

import (
	"reflect"
	"testing"
)

func TestBuildSettings(t *testing.T) {
	got, err := buildSettings(`{"temperature":0.2}`, []string{"max_tokens=256", "stream=false", "voice=alloy"})
	if err != nil {
		t.Fatalf("buildSettings: %v", err)
	}
	want := map[string]any{
		"temperature": 0.2,
		"max_tokens":  int64(256),
		"stream":      false,
		"voice":       "alloy",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("settings = %#v, want %#v", got, want)
	}
}

func TestBuildSettings_Invalid(t *testing.T) {
	if _, err := buildSettings("not json", nil); err == nil {
		t.Error("expected error for malformed --settings")
	}
	if _, err := buildSettings("", []string{"novalue"}); err == nil {
		t.Error("expected error for --set without =")
	}
}

func TestBuildSettings_Empty(t *testing.T) {
	got, err := buildSettings("", nil)
	if err != nil {
		t.Fatalf("buildSettings: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil settings, got %#v", got)
	}
}

func TestParseScalar(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"1", int64(1)},
		{"-3", int64(-3)},
		{"0.5", 0.5},
		{"true", true},
		{"FALSE", false},
		{"gpt-4", "gpt-4"},
	}
	for _, tc := range cases {
		if got := parseScalar(tc.in); got != tc.want {
			t.Errorf("parseScalar(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestParseArgPairs(t *testing.T) {
	got, err := parseArgPairs([]string{"text=hello", "lang=fr"})
	if err != nil {
		t.Fatalf("parseArgPairs: %v", err)
	}
	want := map[string]string{"text": "hello", "lang": "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args = %#v, want %#v", got, want)
	}

	if _, err := parseArgPairs([]string{"=oops"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestMaskKey(t *testing.T) {
	if got := maskKey("sk-abcdef123456"); got != "****3456" {
		t.Errorf("maskKey = %q", got)
	}
	if got := maskKey("ab"); got != "****" {
		t.Errorf("maskKey short = %q", got)
	}
}
