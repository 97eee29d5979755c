package weather

import (
	"errors"
	"testing"
	"time"
)

func TestParseIntervalStart(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "numeric offset",
			raw:  "2025-01-17T06:00:00-08:00",
			want: time.Date(2025, 1, 17, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "zulu",
			raw:  "2025-01-17T06:00:00Z",
			want: time.Date(2025, 1, 17, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "interval keeps start",
			raw:  "2025-01-17T06:00:00+00:00/PT1H",
			want: time.Date(2025, 1, 17, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "multi day interval",
			raw:  "2025-01-17T06:00:00+00:00/P1DT6H",
			want: time.Date(2025, 1, 17, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "fractional seconds",
			raw:  "2025-01-17T06:00:00.5Z",
			want: time.Date(2025, 1, 17, 6, 0, 0, 500000000, time.UTC),
		},
		{name: "not a date", raw: "not-a-date", wantErr: true},
		{name: "no offset", raw: "2025-01-17T06:00:00", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "only duration", raw: "/PT1H", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntervalStart(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedTimestamp) {
					t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolveTimeZone(t *testing.T) {
	loc, err := ResolveTimeZone("")
	if err != nil || loc != time.UTC {
		t.Fatalf("empty name should resolve to UTC, got %v, %v", loc, err)
	}

	loc, err = ResolveTimeZone("America/Los_Angeles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/Los_Angeles" {
		t.Errorf("expected America/Los_Angeles, got %s", loc)
	}

	if _, err := ResolveTimeZone("Mars/Olympus_Mons"); !errors.Is(err, ErrUnknownTimeZone) {
		t.Errorf("expected ErrUnknownTimeZone, got %v", err)
	}
}
