package main

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"termibot/pkg/plugins"
)

var sampleInfos = []plugins.PluginInfo{
	{Name: "songlink", Subscriptions: []plugins.SubscriptionInfo{}},
	{Name: "karma", Subscriptions: []plugins.SubscriptionInfo{
		{Pattern: "^karma$", Description: "karma <name>"},
	}},
	{Name: "echo", Subscriptions: []plugins.SubscriptionInfo{
		{Pattern: "^echo"},
	}},
}

func TestWritePluginsText(t *testing.T) {
	var buf bytes.Buffer
	if err := writePlugins(&buf, sampleInfos, "text"); err != nil {
		t.Fatalf("writePlugins() error = %v", err)
	}

	want := "songlink\n  (events only)\nkarma\n  ^karma$  karma <name>\necho\n  ^echo\n"
	if buf.String() != want {
		t.Fatalf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWritePluginsYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writePlugins(&buf, sampleInfos, "yaml"); err != nil {
		t.Fatalf("writePlugins() error = %v", err)
	}

	var got []plugins.PluginInfo
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v\n%s", err, buf.String())
	}
	if len(got) != 3 || got[1].Subscriptions[0].Description != "karma <name>" {
		t.Fatalf("decoded = %+v", got)
	}
	if strings.Contains(buf.String(), "description: \"\"") {
		t.Fatalf("empty descriptions should be omitted:\n%s", buf.String())
	}
}

func TestWritePluginsEmptyAndUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := writePlugins(&buf, nil, "text"); err != nil || buf.String() != "No plugins enabled.\n" {
		t.Fatalf("writePlugins() = %q, %v", buf.String(), err)
	}
	if err := writePlugins(&buf, sampleInfos, "json"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
