package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bryfeng/sherpa-front-sub002/internal/config"
	"github.com/bryfeng/sherpa-front-sub002/internal/model"
)

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"id": "w1", "title": "Prices"}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"id"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(out) != 1 || out[0]["id"] != "w1" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := out[0]["title"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderSelectDottedPath(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data: map[string]any{
			"id":      "conv_swap_1",
			"payload": map[string]any{"tx": map[string]any{"to": "0xrouter"}},
		},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"payload.tx.to"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if out["payload.tx.to"] != "0xrouter" {
		t.Fatalf("dotted projection failed: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"id": "token-price", "order": 0}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "id=token-price") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderFullEnvelopeCarriesError(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: false,
		Error:   &model.ErrorBody{Code: 15, Type: "expired", Message: "quote has expired"},
	}
	settings := config.Settings{OutputMode: "json"}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if out["success"] != false {
		t.Fatalf("expected success=false: %s", buf.String())
	}
	errBody := out["error"].(map[string]any)
	if errBody["message"] != "quote has expired" {
		t.Fatalf("unexpected error body: %s", buf.String())
	}
}
