package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/banshee-data/airsense.report/internal/serialmux"
	"github.com/banshee-data/airsense.report/internal/telemetry"
)

func newTestServer(t *testing.T) (*telemetry.Decoder, *serialmux.TestableSerialPort, *httptest.Server) {
	t.Helper()
	dec := telemetry.NewDecoder()
	port := serialmux.NewTestableSerialPort()
	mux := serialmux.NewSerialMux(port, nil)

	ts := httptest.NewServer(NewServer(dec, mux).ServeMux())
	t.Cleanup(ts.Close)
	return dec, port, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp
}

func TestShowSchema(t *testing.T) {
	dec, _, ts := newTestServer(t)

	var unset struct {
		Set    bool     `json:"set"`
		Schema []string `json:"schema"`
	}
	getJSON(t, ts.URL+"/schema", &unset)
	if unset.Set || unset.Schema != nil {
		t.Errorf("schema before ingest = %+v, want unset", unset)
	}

	dec.Ingest("DeviceId,PM2.5(UGM3)")

	var set struct {
		Set    bool     `json:"set"`
		Schema []string `json:"schema"`
	}
	getJSON(t, ts.URL+"/schema", &set)
	if !set.Set || len(set.Schema) != 2 {
		t.Errorf("schema after header = %+v", set)
	}
}

func TestSnapshotAndSeries(t *testing.T) {
	dec, _, ts := newTestServer(t)
	dec.Ingest("DeviceId,PM2.5(UGM3)")
	dec.Ingest("D1,12.3")

	var snap map[string]any
	getJSON(t, ts.URL+"/snapshot", &snap)
	if snap["DeviceId"] != "D1" || snap["PM2.5(UGM3)"] != 12.3 {
		t.Errorf("snapshot = %v", snap)
	}

	var points []struct {
		T int64    `json:"t"`
		V *float64 `json:"v"`
	}
	getJSON(t, ts.URL+"/series?sensor=pm2.5", &points)
	if len(points) != 1 || points[0].V == nil || *points[0].V != 12.3 {
		t.Errorf("series = %+v", points)
	}

	resp := getJSON(t, ts.URL+"/series", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("series without sensor param: status %d, want 400", resp.StatusCode)
	}
}

func TestSchemaActions(t *testing.T) {
	dec, _, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/schema/default", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("assume default: status %d", resp.StatusCode)
	}
	if got := dec.CurrentSchema(); len(got) != len(telemetry.DefaultSchema) {
		t.Errorf("schema after default action = %v", got)
	}

	form := url.Values{"schema": {"DeviceId,TEMP(C)"}}
	resp, err = http.PostForm(ts.URL+"/schema/custom", form)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("set custom: status %d", resp.StatusCode)
	}
	if got := dec.CurrentSchema(); len(got) != 2 || got[1] != "TEMP(C)" {
		t.Errorf("schema after custom action = %v", got)
	}

	// Empty custom schema is rejected.
	resp, err = http.PostForm(ts.URL+"/schema/custom", url.Values{"schema": {" "}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty custom schema: status %d, want 400", resp.StatusCode)
	}
}

func TestExportSeries(t *testing.T) {
	dec, _, ts := newTestServer(t)

	// Declined while there is no sensor data.
	resp := getJSON(t, ts.URL+"/export/series", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("empty export: status %d, want 409", resp.StatusCode)
	}

	dec.Ingest("DeviceId,PM2.5(UGM3),DATE,TIME")
	dec.Ingest("D1,12.3,2025-09-22,14:07:03")

	resp, err := http.Get(ts.URL + "/export/series")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "series.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestExportRaw(t *testing.T) {
	dec, _, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/export/raw", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("empty raw export: status %d, want 409", resp.StatusCode)
	}

	dec.Ingest("anything at all")
	resp, err := http.Get(ts.URL + "/export/raw")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("raw export: status %d", resp.StatusCode)
	}
}

func TestSendCommand(t *testing.T) {
	_, port, ts := newTestServer(t)

	resp, err := http.PostForm(ts.URL+"/command", url.Values{"command": {"MODE 1"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("command: status %d", resp.StatusCode)
	}
	if got := string(port.GetWrittenData()); got != "MODE 1\n" {
		t.Errorf("port received %q, want %q", got, "MODE 1\n")
	}

	resp = getJSON(t, ts.URL+"/command", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET command: status %d, want 405", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	dec, _, ts := newTestServer(t)
	dec.Ingest("DeviceId,PM2.5(UGM3)")
	dec.Ingest("D1,12.3")
	dec.Ingest("bad,row,here")

	var health struct {
		SessionID    string `json:"session_id"`
		SchemaSet    bool   `json:"schema_set"`
		LinesTotal   uint64 `json:"lines_total"`
		RowsDecoded  uint64 `json:"rows_decoded"`
		RowsRejected uint64 `json:"rows_rejected"`
	}
	getJSON(t, ts.URL+"/health", &health)

	if health.SessionID == "" || !health.SchemaSet {
		t.Errorf("health = %+v", health)
	}
	if health.LinesTotal != 3 || health.RowsDecoded != 1 || health.RowsRejected != 1 {
		t.Errorf("counters = %+v", health)
	}
}

func TestStatsEndpoint(t *testing.T) {
	dec, _, ts := newTestServer(t)
	dec.Ingest("DeviceId,PM2.5(UGM3)")
	dec.Ingest("D1,10.0")
	dec.Ingest("D1,20.0")

	var stats []struct {
		Key  string  `json:"key"`
		Mean float64 `json:"mean"`
	}
	getJSON(t, ts.URL+"/stats", &stats)
	if len(stats) != 1 || stats[0].Key != "pm2.5" || stats[0].Mean != 15.0 {
		t.Errorf("stats = %+v", stats)
	}
}
