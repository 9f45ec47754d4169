package environment

// Known OS images. ubuntu-lts-latest tracks the newest LTS entry here, so
// adding a new LTS image updates the alias automatically.
const imageLTSLatest = "ubuntu-lts-latest"

var knownImages = []string{
	"ubuntu-20.04",
	"ubuntu-22.04",
	"ubuntu-24.04",
}

var latestLTSImage = knownImages[len(knownImages)-1]

// toolVersions lists accepted versions per toolchain, newest last: "latest"
// resolves to the final entry and bare-major aliases resolve to the last
// matching entry.
var toolVersions = map[string][]string{
	"python": {
		"2.7",
		"pypy3.9", "pypy3.10",
		"miniconda3-4.7", "miniconda-latest",
		"mambaforge-22.9", "mambaforge-latest",
		"3.6", "3.7", "3.8", "3.9", "3.10", "3.11", "3.12", "3.13",
	},
	"nodejs": {"14", "16", "18", "19", "20", "22"},
	"go":     {"1.20", "1.21", "1.22", "1.23", "1.24"},
	"rust":   {"1.61", "1.64", "1.70", "1.75", "1.78", "1.82"},
	"ruby":   {"3.0", "3.1", "3.2", "3.3"},
}
