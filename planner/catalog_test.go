package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c.Cities, 5)

	bdx, ok := c.Lookup("  bordeaux ")
	require.True(t, ok)
	assert.Equal(t, "Bordeaux", bdx.Name)
	assert.Equal(t, -0.5792, bdx.Lon)

	assert.Equal(t, "LYS", c.IATA("Lyon"))
	assert.Equal(t, "Toulouse", c.IATA("Toulouse"))

	marseille, _ := c.Lookup("Marseille")
	paris, _ := c.Lookup("Paris")
	assert.Equal(t, marseille.LatLon, c.Coords("Toulouse", "Marseille"))
	assert.Equal(t, paris.LatLon, c.Coords("Toulouse", "Atlantis"))
}

func TestLoadCatalog_Errors(t *testing.T) {
	_, err := LoadCatalog([]byte("cities: [oops"))
	assert.ErrorContains(t, err, "failed to parse city catalog")

	_, err = LoadCatalog([]byte("default: Rome\ncities:\n  - name: Paris\n"))
	assert.EqualError(t, err, `default city "Rome" is not in the catalog`)
}
