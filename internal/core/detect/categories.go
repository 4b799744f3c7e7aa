package detect

// Category is one row of the detection table: a label, the marker files
// that identify it at the project root, and the glob patterns that
// identify it anywhere within the scan depth. The table order is the
// aggregation order, so it is part of the output contract.
type Category struct {
	Name    string
	Markers []string // exact filenames checked at the root
	Globs   []string // filename patterns matched within the scan depth
}

// Builtin is the closed table of known categories. Adding a category is
// a row edit, not new code. The mirror may carry directories for labels
// not listed here; those are ignored until the table catches up.
var Builtin = []Category{
	{Name: "go", Markers: []string{"go.mod"}, Globs: []string{"*.go"}},
	{Name: "python", Markers: []string{"pyproject.toml", "requirements.txt", "setup.py"}, Globs: []string{"*.py"}},
	{Name: "node", Markers: []string{"package.json"}, Globs: []string{"*.ts", "*.tsx", "*.js"}},
	{Name: "rust", Markers: []string{"Cargo.toml"}, Globs: []string{"*.rs"}},
	{Name: "shell", Markers: []string{}, Globs: []string{"*.sh", "*.bash"}},
	{Name: "docker", Markers: []string{"Dockerfile", "docker-compose.yml", "compose.yaml"}, Globs: []string{"Dockerfile.*"}},
	{Name: "terraform", Markers: []string{}, Globs: []string{"*.tf"}},
}

// Names returns the labels of the given categories in table order.
func Names(categories []Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Name)
	}
	return out
}
