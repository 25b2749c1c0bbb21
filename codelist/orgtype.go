package codelist

// orgTypeCategories translates IATI organisation-type codes into the host
// system's organization categories.
var orgTypeCategories = map[string]string{
	"10": "government",
	"11": "government",
	"15": "government",
	"21": "ingo",
	"22": "ngo",
	"23": "ngo",
	"24": "ngo",
	"30": "multilateral",
	"40": "multilateral",
	"60": "private",
	"70": "private",
	"71": "private",
	"72": "private",
	"73": "private",
	"80": "academic",
	"90": "other",
}

// OrgTypeCategory maps an IATI organisation-type code to the host category,
// falling back to "other" for unknown codes.
func OrgTypeCategory(code string) string {
	if category, ok := orgTypeCategories[code]; ok {
		return category
	}
	return "other"
}
