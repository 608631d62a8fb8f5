package production

import (
	"os"
	"path/filepath"
	"testing"

	"mintfigures/internal/components/telemetry"
	"mintfigures/internal/normalize"
	"mintfigures/internal/period"

	"github.com/stretchr/testify/require"
)

func TestProgramByID(t *testing.T) {
	p, ok := ProgramByID("AWQ")
	require.True(t, ok)
	require.Equal(t, "American Women Quarters", p.Name)

	p, ok = ProgramByID("WJNS")
	require.True(t, ok)
	require.Equal(t, "Westward Journey Nickel Series", p.Name)

	_, ok = ProgramByID("NUMIS")
	require.False(t, ok)
}

func TestAddAndFinalize(t *testing.T) {
	n := normalize.New(telemetry.NewRecorder())
	d := New()

	atb := "America the Beautiful Quarters"
	y2014 := period.Year(2014)
	d.Add(atb, y2014, n.Normalize([]normalize.RawRow{
		normalize.NewRawRow("Design", "2014 Great Smoky Mountains", "Philadelphia", "73.2", "Denver", "99.4"),
		normalize.NewRawRow("Design", "Everglades", "Philadelphia", "", "Denver", ""),
		normalize.NewRawRow("Design", "Total", "Philadelphia", "1", "Denver", "1"),
	}, y2014, atb))

	y2015 := period.Year(2015)
	d.Add(atb, y2015, n.Normalize([]normalize.RawRow{
		normalize.NewRawRow("Design", "Homestead", "Philadelphia", "", "Denver", ""),
	}, y2015, atb))

	circ := "Circulating Coins"
	y2019 := period.Year(2019)
	d.Add(circ, y2019, n.Normalize([]normalize.RawRow{
		normalize.NewRawRow("", "Denver", "1 Cent", "3"),
		normalize.NewRawRow("", "Philadelphia", "1 Cent", "1", "5 Cent", "2"),
	}, y2019, circ))

	d.StartProgram("Westward Journey Nickel Series")
	d.Finalize()

	q, ok := d.Value(atb, "2014", "Great Smoky Mountains", "Denver")
	require.True(t, ok)
	require.Equal(t, int64(99_400_000), q)

	year, ok := d.Year(atb, "2015")
	require.True(t, ok)
	require.Nil(t, year)

	year, ok = d.Year(circ, "2019")
	require.True(t, ok)
	require.Equal(t, []string{"Philadelphia", "Denver"}, year.Keys())

	require.Equal(t, []string{atb, circ, "Westward Journey Nickel Series"}, d.Programs())

	path := filepath.Join(t.TempDir(), "circulating-coins-production.json")
	require.NoError(t, Save(path, d))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{
    "America the Beautiful Quarters": {
        "2014": {
            "Great Smoky Mountains": {
                "Philadelphia": 73200000,
                "Denver": 99400000
            },
            "Everglades": null
        },
        "2015": null
    },
    "Circulating Coins": {
        "2019": {
            "Philadelphia": {
                "Penny": 1000000,
                "Nickel": 2000000
            },
            "Denver": {
                "Penny": 3000000
            }
        }
    },
    "Westward Journey Nickel Series": null
}
`, string(contents))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, d.Programs(), loaded.Programs())
	q, ok = loaded.Value(circ, "2019", "Denver", "Penny")
	require.True(t, ok)
	require.Equal(t, int64(3_000_000), q)
	year, ok = loaded.Year(atb, "2015")
	require.True(t, ok)
	require.Nil(t, year)
}

func TestAddReplacesYear(t *testing.T) {
	d := New()
	p := period.Year(2020)
	d.Add("Circulating Coins", p, []normalize.CanonicalRow{
		{ItemName: "Penny", Quantity: 1, Period: p, Shape: normalize.ShapeByMint, Group: "Denver", Mint: "Denver"},
	})
	d.Add("Circulating Coins", p, []normalize.CanonicalRow{
		{ItemName: "Dime", Quantity: 2, Period: p, Shape: normalize.ShapeByMint, Group: "Denver", Mint: "Denver"},
	})

	_, ok := d.Value("Circulating Coins", "2020", "Denver", "Penny")
	require.False(t, ok)
	q, ok := d.Value("Circulating Coins", "2020", "Denver", "Dime")
	require.True(t, ok)
	require.Equal(t, int64(2), q)
}

func TestLoadMissing(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Empty(t, d.Programs())
}
