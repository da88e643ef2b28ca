package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormat_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format OutputFormat
		want   bool
	}{
		{
			name:   "text format",
			format: TextFormat,
			want:   true,
		},
		{
			name:   "json format",
			format: JSONFormat,
			want:   true,
		},
		{
			name:   "pretty format",
			format: PrettyFormat,
			want:   true,
		},
		{
			name:   "invalid format",
			format: "invalid",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.format.IsValid())
		})
	}
}

func TestFormatOutput(t *testing.T) {
	t.Parallel()

	records := []Record{
		{{"trigger", "for"}, {"description", "for loop"}},
		{{"trigger", "if"}, {"escape", 3}},
	}

	tests := []struct {
		name    string
		records []Record
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{
			name:    "text format",
			records: records,
			format:  TextFormat,
			want:    "trigger=for description=\"for loop\"\ntrigger=if escape=3",
		},
		{
			name:    "json format",
			records: records,
			format:  JSONFormat,
			want:    "[\n  {\n    \"trigger\": \"for\",\n    \"description\": \"for loop\"\n  },\n  {\n    \"trigger\": \"if\",\n    \"escape\": 3\n  }\n]",
		},
		{
			name:    "json format empty",
			records: nil,
			format:  JSONFormat,
			want:    "[]",
		},
		{
			name:    "text format empty",
			records: nil,
			format:  TextFormat,
			want:    "",
		},
		{
			name:    "invalid format",
			records: records,
			format:  "invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FormatOutput(tt.records, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOutputPretty(t *testing.T) {
	t.Parallel()
	got, err := FormatOutput([]Record{{{"trigger", "for"}, {"description", "for loop"}}}, PrettyFormat)
	require.NoError(t, err)
	assert.Contains(t, got, "for")
	assert.Contains(t, got, "description")
	assert.Contains(t, got, "for loop")
}
