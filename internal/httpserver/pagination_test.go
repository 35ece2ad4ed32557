package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOffsetParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantSize   int
		wantOffset int
		wantErr    bool
	}{
		{
			name:       "defaults",
			query:      "",
			wantPage:   1,
			wantSize:   DefaultPageSize,
			wantOffset: 0,
		},
		{
			name:       "custom page and size",
			query:      "page=3&size=10",
			wantPage:   3,
			wantSize:   10,
			wantOffset: 20,
		},
		{
			name:       "size capped",
			query:      "size=500",
			wantSize:   MaxPageSize,
			wantPage:   1,
			wantOffset: 0,
		},
		{
			name:    "negative page",
			query:   "page=-1",
			wantErr: true,
		},
		{
			name:    "zero page",
			query:   "page=0",
			wantErr: true,
		},
		{
			name:    "non-numeric size",
			query:   "size=abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p, err := ParseOffsetParams(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOffsetParams() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if p.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", p.Page, tt.wantPage)
			}
			if p.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", p.Size, tt.wantSize)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestParseLimitParam(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		max   int
		want  int
	}{
		{"default when absent", "", 20, 500, 20},
		{"custom value", "limit=50", 20, 500, 50},
		{"capped at max", "limit=9000", 20, 500, 500},
		{"invalid falls back to default", "limit=abc", 20, 500, 20},
		{"negative falls back to default", "limit=-5", 20, 500, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			got := ParseLimitParam(r, "limit", tt.def, tt.max)
			if got != tt.want {
				t.Errorf("ParseLimitParam() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{25, 10, 3},
		{3, 10, 1},
		{10, 10, 1},
		{0, 10, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		got := TotalPages(tt.total, tt.size)
		if got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
