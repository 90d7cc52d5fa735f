//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestAPI_ExpeditionLifecycle(t *testing.T) {
	baseURL := strings.TrimRight(envOr("E2E_BASE_URL", "http://localhost:8080"), "/")
	trainerID := envOr("E2E_TRAINER_ID", "e2e-trainer-"+time.Now().UTC().Format("20060102150405"))
	client := &http.Client{Timeout: 20 * time.Second}

	t.Run("unknown location suggests closest id", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/expeditions", map[string]any{
			"trainer":          map[string]any{"id": trainerID, "level": 5},
			"location_id":      "mt_mon",
			"mode":             "balanced",
			"duration_minutes": 60,
		})
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", status, string(body))
		}
		var resp map[string]any
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshal error body: %v", err)
		}
		if asMap(asMap(resp["error"])["details"])["suggestion"] != "mt_moon" {
			t.Fatalf("expected mt_moon suggestion, got %s", string(body))
		}
	})

	t.Run("start intervene stop", func(t *testing.T) {
		status, startBody := mustJSON(t, client, http.MethodPost, baseURL+"/api/expeditions", map[string]any{
			"trainer":          map[string]any{"id": trainerID, "level": 5, "trust": 30},
			"location_id":      "viridian_forest",
			"mode":             "balanced",
			"duration_minutes": 120,
		})
		if status != http.StatusCreated {
			t.Fatalf("start status=%d body=%s", status, string(startBody))
		}
		var started map[string]any
		if err := json.Unmarshal(startBody, &started); err != nil {
			t.Fatalf("unmarshal start: %v body=%s", err, string(startBody))
		}
		expID, _ := started["expedition_id"].(string)
		if expID == "" {
			t.Fatalf("missing expedition_id: %s", string(startBody))
		}
		expURL := baseURL + "/api/expeditions/" + expID

		status, progressBody, err := doRequest(client, http.MethodGet, expURL, nil)
		if err != nil || status != http.StatusOK {
			t.Fatalf("progress status=%d err=%v body=%s", status, err, string(progressBody))
		}

		status, optionsBody := mustJSON(t, client, http.MethodPost, expURL+"/interventions/options", map[string]any{
			"player": map[string]any{"level": 10, "money": 1000},
		})
		if status != http.StatusOK {
			t.Fatalf("options status=%d body=%s", status, string(optionsBody))
		}
		var opts map[string]any
		if err := json.Unmarshal(optionsBody, &opts); err != nil {
			t.Fatalf("unmarshal options: %v", err)
		}
		if len(asSlice(opts["options"])) == 0 {
			t.Fatalf("expected intervention options")
		}

		intervene := map[string]any{"action_id": "trust_building", "player": map[string]any{"level": 10, "money": 1000}}
		status, ivBody := mustJSON(t, client, http.MethodPost, expURL+"/interventions", intervene)
		if status != http.StatusOK {
			t.Fatalf("intervention status=%d body=%s", status, string(ivBody))
		}
		status, cooldownBody := mustJSON(t, client, http.MethodPost, expURL+"/interventions", intervene)
		if status != http.StatusConflict {
			t.Fatalf("expected cooldown conflict, got %d body=%s", status, string(cooldownBody))
		}

		status, stopBody := mustJSON(t, client, http.MethodPost, expURL+"/stop", map[string]any{"reason": "e2e done"})
		if status != http.StatusOK {
			t.Fatalf("stop status=%d body=%s", status, string(stopBody))
		}

		status, replayBody, err := doRequest(client, http.MethodGet, expURL+"/replay?limit=50", nil)
		if err != nil || status != http.StatusOK {
			t.Fatalf("replay status=%d err=%v body=%s", status, err, string(replayBody))
		}
		var rep map[string]any
		if err := json.Unmarshal(replayBody, &rep); err != nil {
			t.Fatalf("unmarshal replay response: %v body=%s", err, string(replayBody))
		}
		if len(asSlice(rep["notifications"])) == 0 {
			t.Fatalf("expected replay notifications in response")
		}
	})

	t.Run("ops kpi", func(t *testing.T) {
		status, kpiBody, err := doRequest(client, http.MethodGet, baseURL+"/ops/kpi", nil)
		if err != nil {
			t.Fatalf("kpi request: %v", err)
		}
		if status != http.StatusOK {
			t.Fatalf("kpi status=%d body=%s", status, string(kpiBody))
		}
		var kpi map[string]any
		if err := json.Unmarshal(kpiBody, &kpi); err != nil {
			t.Fatalf("unmarshal kpi: %v body=%s", err, string(kpiBody))
		}
		if _, ok := kpi["interventions_accepted"]; !ok {
			t.Fatalf("expected interventions_accepted in kpi response")
		}
	})
}

func mustJSON(t *testing.T, client *http.Client, method, url string, body map[string]any) (int, []byte) {
	t.Helper()
	status, respBody, err := doRequest(client, method, url, body)
	if err != nil {
		t.Fatalf("%s %s request failed: %v", method, url, err)
	}
	return status, respBody
}

func doRequest(client *http.Client, method, url string, body map[string]any) (int, []byte, error) {
	var payloadBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payloadBytes = b
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var payload io.Reader
		if len(payloadBytes) > 0 {
			payload = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequest(method, url, payload)
		if err != nil {
			return 0, nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil
		if resp.StatusCode >= 500 {
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}
