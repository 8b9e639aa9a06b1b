package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRunner(output string, code int) Runner {
	return func(tool string, args ...string) (string, int, error) {
		return output, code, nil
	}
}

func TestDISMHealthyTranscript(t *testing.T) {
	r := NewWithRunner(fixedRunner("No component store corruption detected.\nThe operation completed successfully.", 0))
	result, err := r.DISM(ScanHealth)
	require.NoError(t, err)
	assert.Equal(t, Healthy, result.Verdict)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, []string{"/Online", "/Cleanup-Image", "/ScanHealth"}, result.Args)
}

func TestDISMRepairableStoreDependsOnAction(t *testing.T) {
	transcript := "The component store is repairable.\nThe operation completed successfully."

	r := NewWithRunner(fixedRunner(transcript, 0))
	scan, err := r.DISM(ScanHealth)
	require.NoError(t, err)
	assert.Equal(t, CorruptionFound, scan.Verdict)

	restore, err := r.DISM(RestoreHealth)
	require.NoError(t, err)
	assert.Equal(t, Repaired, restore.Verdict)
}

func TestDISMBadArgumentExitCode(t *testing.T) {
	r := NewWithRunner(fixedRunner("Error: 87\nThe cleanup-image option is unknown.", 87))
	result, err := r.DISM(CheckHealth)
	require.NoError(t, err)
	assert.Equal(t, Failed, result.Verdict)
	assert.Equal(t, 87, result.ExitCode)
}

func TestSFCVerdicts(t *testing.T) {
	tests := []struct {
		name   string
		output string
		code   int
		want   Verdict
	}{
		{
			name:   "clean system",
			output: "Windows Resource Protection did not find any integrity violations.",
			code:   0,
			want:   Healthy,
		},
		{
			name:   "repaired",
			output: "Windows Resource Protection found corrupt files and successfully repaired them.",
			code:   0,
			want:   Repaired,
		},
		{
			name:   "found but not fixed",
			output: "Windows Resource Protection found corrupt files but was unable to fix some of them.",
			code:   0,
			want:   CorruptionFound,
		},
		{
			name:   "utility failure",
			output: "Windows Resource Protection could not perform the requested operation.",
			code:   1,
			want:   Failed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithRunner(fixedRunner(tt.output, tt.code))
			result, err := r.SFC()
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Verdict)
		})
	}
}

func TestSFCStripsUTF16Nulls(t *testing.T) {
	// Simulate SFC's UTF-16 pipe output: NUL after every byte.
	raw := "did not find any integrity violations"
	var widened []byte
	for i := 0; i < len(raw); i++ {
		widened = append(widened, raw[i], 0)
	}
	r := NewWithRunner(fixedRunner(string(widened), 0))
	result, err := r.SFC()
	require.NoError(t, err)
	assert.Equal(t, Healthy, result.Verdict)
}
