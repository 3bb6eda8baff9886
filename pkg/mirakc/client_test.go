package mirakc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://tuner.local:40772")

	if client.BaseURL != "http://tuner.local:40772" {
		t.Errorf("expected BaseURL 'http://tuner.local:40772', got %q", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Error("expected HTTPClient to be set")
	}
	if client.UserAgent == "" {
		t.Error("expected UserAgent to be set")
	}
}

func TestNewClient_TrailingSlash(t *testing.T) {
	client := NewClient("http://tuner.local:40772/")

	if client.BaseURL != "http://tuner.local:40772" {
		t.Errorf("expected trailing slash to be removed, got %q", client.BaseURL)
	}
}

func TestClient_Programs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/programs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id": 327360102400001, "eventId": 1, "networkId": 32736, "serviceId": 1024,
			 "startAt": 1710021600000, "duration": 3600000, "isFree": true,
			 "name": "News", "extended": {"出演": "someone"},
			 "genres": [{"lv1": 0, "lv2": 1, "un1": 15, "un2": 15}]},
			{"startAt": 1710025200000, "duration": 0}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	programs, err := client.Programs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(programs))
	}
	p := programs[0]
	if p.Name != "News" || p.NetworkID != 32736 || p.ServiceID != 1024 {
		t.Errorf("unexpected program identity: %+v", p)
	}
	if p.Duration != 3600000 {
		t.Errorf("expected duration 3600000, got %d", p.Duration)
	}
	if p.Extended["出演"] != "someone" {
		t.Errorf("expected extended metadata to be decoded, got %v", p.Extended)
	}
	if len(p.Genres) != 1 || p.Genres[0].Un1 != 15 {
		t.Errorf("unexpected genres: %v", p.Genres)
	}
	if !p.Identified() {
		t.Error("expected first program to be identified")
	}
	if programs[1].Identified() {
		t.Error("expected second program to be unidentified")
	}
	if !p.End().Equal(p.Start().Add(time.Hour)) {
		t.Errorf("expected end one hour after start, got %s", p.End())
	}
}

func TestClient_Programs_EmptyArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer server.Close()

	programs, err := NewClient(server.URL).Programs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if programs == nil || len(programs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", programs)
	}
}

func TestClient_Services(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/services" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Service{
			{ID: 3273601024, ServiceID: 1024, NetworkID: 32736, Name: "NHK", Channel: Channel{Type: "GR", Channel: "27"}},
		})
	}))
	defer server.Close()

	services, err := NewClient(server.URL).Services(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(services))
	}
	if services[0].Channel.Type != "GR" {
		t.Errorf("expected channel type GR, got %q", services[0].Channel.Type)
	}
}

func TestClient_Version(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": "3.1.0", "latest": "3.1.0"}`))
	}))
	defer server.Close()

	v, err := NewClient(server.URL).Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Current != "3.1.0" {
		t.Errorf("expected current '3.1.0', got %q", v.Current)
	}
}

func TestClient_Tuners(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tuners" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"index": 0, "name": "PX-Q3PE4 T0", "types": ["GR"], "command": "recpt1 --device /dev/px4video2 27 - -",
			 "pid": 4242, "users": [{"id": "10.0.0.5:51234", "priority": 0, "agent": "mirakc-timeshift"}],
			 "isAvailable": true, "isRemote": false, "isFree": false, "isUsing": true, "isFault": false},
			{"index": 1, "name": "PX-Q3PE4 S0", "types": ["BS", "CS"],
			 "isAvailable": true, "isRemote": false, "isFree": true, "isUsing": false, "isFault": false}
		]`))
	}))
	defer server.Close()

	tuners, err := NewClient(server.URL).Tuners(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tuners) != 2 {
		t.Fatalf("expected 2 tuners, got %d", len(tuners))
	}
	if tuners[0].PID != 4242 || len(tuners[0].Users) != 1 || tuners[0].Users[0].Agent != "mirakc-timeshift" {
		t.Errorf("unexpected first tuner: %+v", tuners[0])
	}
	if got := tuners[0].State(); got != TunerPreemptible {
		t.Errorf("expected state %q, got %q", TunerPreemptible, got)
	}
	if got := tuners[1].State(); got != TunerFree {
		t.Errorf("expected state %q, got %q", TunerFree, got)
	}
}

func TestClient_Tuners_Null(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer server.Close()

	tuners, err := NewClient(server.URL).Tuners(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tuners == nil || len(tuners) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", tuners)
	}
}

func TestTuner_State(t *testing.T) {
	tests := []struct {
		name  string
		tuner Tuner
		want  TunerState
	}{
		{"fault wins", Tuner{IsFault: true, IsFree: true}, TunerFault},
		{"free", Tuner{IsAvailable: true, IsFree: true}, TunerFree},
		{"background user", Tuner{IsUsing: true, Users: []TunerUser{{ID: "a", Priority: -1}}}, TunerPreemptible},
		{"viewer", Tuner{IsUsing: true, Users: []TunerUser{{ID: "a", Priority: 1}}}, TunerUsing},
		{"using without users", Tuner{IsUsing: true}, TunerUsing},
		{"nothing set", Tuner{}, TunerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tuner.State(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVersion_UpdateAvailable(t *testing.T) {
	tests := []struct {
		v    *Version
		want bool
	}{
		{nil, false},
		{&Version{Current: "3.1.0", Latest: "3.1.0"}, false},
		{&Version{Current: "3.1.0", Latest: "3.2.0"}, true},
		{&Version{Current: "3.1.0"}, false},
	}

	for _, tt := range tests {
		if got := tt.v.UpdateAvailable(); got != tt.want {
			t.Errorf("UpdateAvailable(%+v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestClient_StreamURL(t *testing.T) {
	client := NewClient("http://tuner.local:40772/")
	service := &Service{ID: 3273601024}

	tests := []struct {
		name     string
		service  *Service
		protocol string
		want     string
	}{
		{"vlc protocol", service, "vlc", "vlc://tuner.local:40772/api/services/3273601024/stream"},
		{"plain http", service, "http", "http://tuner.local:40772/api/services/3273601024/stream"},
		{"empty protocol disables", service, "", ""},
		{"nil service", nil, "vlc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.StreamURL(tt.service, tt.protocol); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Programs(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).Programs(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
