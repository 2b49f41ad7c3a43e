package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	content := "species,decimalLatitude,decimalLongitude,temperature_max_C,temperature_min_C,precipitation_mm,precipitation_hours,windspeed_max_kmh,sunshine_duration_s,presence,extra\n" +
		"Mikania micrantha,14.6,121.0,32,24,15,8,12,36000,1,ignored\n" +
		"Mikania micrantha,45.0,90.0,15,5,2,1,20,25000,0,ignored\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	samples, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, 14.6, samples[0].Obs.Latitude)
	assert.Equal(t, 8.0, samples[0].Obs.RainHours)
	assert.Equal(t, 1, samples[0].Presence)
	assert.Equal(t, 28.0, samples[0].TempMean, "mean computed from max/min when column absent")
	assert.Equal(t, 0, samples[1].Presence)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("species,decimalLatitude\nx,1\n"), 0o644))

	_, err := ReadCSV(path)
	assert.ErrorContains(t, err, "missing required column")
}

func TestReadCSV_OutOfRangeRow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	content := "decimalLatitude,decimalLongitude,temperature_max_C,temperature_min_C,precipitation_mm\n" +
		"95.0,121.0,32,24,15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadCSV(path)
	assert.ErrorContains(t, err, "latitude")
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	in := clusterPresences()
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Obs, out[i].Obs)
		assert.Equal(t, in[i].Presence, out[i].Presence)
	}
}
