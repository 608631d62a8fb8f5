package production

// Program is a circulating coin production program.
type Program struct {
	// ID is the program code used in manifest file names and report requests.
	ID   string
	Name string
}

// Programs are the known programs, in output order.
var Programs = []Program{
	{ID: "50SQ", Name: "50 State Quarters"},
	{ID: "ATBQ", Name: "America the Beautiful Quarters"},
	{ID: "AWQS", Name: "American Women Quarters"},
	{ID: "CIRC", Name: "Circulating Coins"},
	{ID: "DCTERR", Name: "District of Columbia and US Territories Quarters"},
	{ID: "PRESDOLLAR", Name: "Presidential One Dollar"},
	{ID: "WJNS", Name: "Westward Journey Nickel Series"},
}

// manifestAliases maps program codes seen in manifest file names to the code
// of the program they belong to.
var manifestAliases = map[string]string{
	"AWQ": "AWQS",
}

// ProgramByID resolves a manifest program code, aliases included.
func ProgramByID(id string) (Program, bool) {
	if alias, ok := manifestAliases[id]; ok {
		id = alias
	}
	for _, p := range Programs {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}
