package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverlab/persona-gateway/internal/persona"
)

func sampleRow() Row {
	return Row{
		Timestamp:     time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		ParticipantID: "P007",
		ScenarioID:    "traffic_jam",
		Condition:     "personalized",
		Profile: persona.Profile{
			Openness: 3, Conscientiousness: 4, Extraversion: 2, Agreeableness: 5, Neuroticism: 1,
			DBQViolations: 2, DBQErrors: 3, DBQLapses: 4,
			BSSSExperience: 5, BSSSThrill: 1, BSSSDisinhibition: 2, BSSSBoredom: 3,
		},
		PersonaSummary: "Driver likes cooperation; use inclusive, gentle phrasing.",
		Transcript:     "I am stuck in traffic, any ideas?",
		Response:       "Stay calm. Keep distance.",
		LatencySec:     1.42,
	}
}

func TestWriterCreatesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w := NewWriter(path)

	require.NoError(t, w.Append(sampleRow()))
	require.NoError(t, w.Append(sampleRow()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header(), records[0])
}

func TestWriterRowLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w := NewWriter(path)
	require.NoError(t, w.Append(sampleRow()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := records[1]
	assert.Equal(t, "2026-03-14T10:30:00Z", row[0])
	assert.Equal(t, "P007", row[1])
	assert.Equal(t, "traffic_jam", row[2])
	assert.Equal(t, "personalized", row[3])
	assert.Equal(t, []string{"3", "4", "2", "5", "1"}, row[4:9])
	assert.Equal(t, []string{"2", "3", "4"}, row[9:12])
	assert.Equal(t, []string{"5", "1", "2", "3"}, row[12:16])
	assert.Equal(t, "I am stuck in traffic, any ideas?", row[17])
	assert.Equal(t, "1.42", row[19])
}

func TestWriterCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "results.csv")
	w := NewWriter(path)
	require.NoError(t, w.Append(sampleRow()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
