//go:build integration

package integration_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("BARI_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

// TestSubmissionFlowIntegration runs against a server started with the
// bundled config/questions.yaml.
func TestSubmissionFlowIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	var q struct {
		MaxPoints float64 `json:"max_points"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	doGet(t, client, base+"/api/questionnaire", &q)
	if len(q.Questions) == 0 || q.MaxPoints <= 0 {
		t.Fatalf("unexpected questionnaire: %+v", q)
	}

	var sub struct {
		ID      string `json:"id"`
		Receipt string `json:"receipt"`
		Report  struct {
			Summary struct {
				GlobalColor string `json:"global_color"`
				Escalated   bool   `json:"escalated"`
			} `json:"summary"`
		} `json:"report"`
	}
	doPost(t, client, base+"/api/submissions", map[string]any{
		"patient": map[string]string{"last_name": "Integration", "first_name": "Test"},
		"answers": map[string]any{"reoperation": true, "rehospitalisation": false},
	}, &sub)
	if sub.ID == "" {
		t.Fatalf("submission returned no id")
	}
	if sub.Report.Summary.GlobalColor != "red" || !sub.Report.Summary.Escalated {
		t.Fatalf("expected escalated red for a reoperation, got %+v", sub.Report.Summary)
	}

	var stored struct {
		ID string `json:"id"`
	}
	doGet(t, client, base+"/api/submissions/"+sub.ID, &stored)
	if stored.ID != sub.ID {
		t.Fatalf("fetched %q, want %q", stored.ID, sub.ID)
	}

	resp, err := client.Get(base + "/api/export?format=score")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	found := false
	for _, rec := range records[1:] {
		if rec[0] == sub.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("submission %s missing from score export", sub.ID)
	}

	if sub.Receipt != "" {
		var verified struct {
			Valid bool `json:"valid"`
		}
		doPost(t, client, base+"/api/receipts/verify", map[string]string{"receipt": sub.Receipt}, &verified)
		if !verified.Valid {
			t.Fatalf("receipt did not verify")
		}
	}
}

func doGet(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("http get %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	decodeOK(t, resp, url, out)
}

func doPost(t *testing.T, client *http.Client, url string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	decodeOK(t, resp, url, out)
}

func decodeOK(t *testing.T, resp *http.Response, url string, out any) {
	t.Helper()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
