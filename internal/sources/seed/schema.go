package seed

// File is the top-level structure of the seed file.
type File struct {
	Links []Link `yaml:"links"`
}

// Link is one site link declared by the operator.
type Link struct {
	ID        string `yaml:"id,omitempty"`
	Label     string `yaml:"label"`
	Secret    string `yaml:"secret"`
	Site1     string `yaml:"site1"`
	Site2     string `yaml:"site2"`
	Published *bool  `yaml:"published,omitempty"`
}
