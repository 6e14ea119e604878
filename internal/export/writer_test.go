package export

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestMarshalLoadRoundTrip(t *testing.T) {
	original := `{"messages":[
		{"id":"1","author":{"global_name":"Alice","username":"alice42"},"content":"hello","timestamp":"2023-01-01T12:34:56.789Z",
		 "attachments":[{"url":"https://cdn/a.png","filename":"a.png"}],
		 "embeds":[{"title":"T","fields":[{"name":"n","value":"v"}]}],
		 "reactions":[{"emoji":{"name":"👍"},"count":2}]},
		{"id":"2","author":{"username":"bob"},"content":""}
	]}`

	loaded, err := Load([]byte(original))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	data, err := Marshal(loaded)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load of marshaled output failed: %v", err)
	}

	if len(reloaded) != len(loaded) {
		t.Fatalf("record count changed: %d -> %d", len(loaded), len(reloaded))
	}
	for i := range loaded {
		if !reflect.DeepEqual(loaded[i], reloaded[i]) {
			t.Errorf("record %d changed through round trip:\n before: %+v\n after:  %+v",
				i, loaded[i], reloaded[i])
		}
	}
}

func TestMarshalEmbedsVerbatim(t *testing.T) {
	embed := `{"title":"T","custom":{"deeply":{"nested":true}}}`
	records, err := Load([]byte(`{"messages":[{"id":"1","content":"x","embeds":[` + embed + `]}]}`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	data, err := Marshal(records)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if string(reloaded[0].Embeds[0]) != embed {
		t.Errorf("embed changed: %s", reloaded[0].Embeds[0])
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subset.json")
	records, err := Load([]byte(`{"messages":[{"id":"1","content":"keep me"}]}`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Save(path, records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(reloaded) != 1 || reloaded[0].Content != "keep me" {
		t.Errorf("unexpected reload: %+v", reloaded)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/messages.json"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
