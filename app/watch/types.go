package watch

// Config describes a single watched creator, loaded from
// <creators_dir>/<creator>.yml. The creator name comes from the filename.
type Config struct {
	Creator  string   `yaml:"-"`
	Settings Settings `yaml:"settings"`
}

type Settings struct {
	Enabled        bool `yaml:"enabled"`
	Posts          bool `yaml:"posts"`
	Stories        bool `yaml:"stories"`
	PostFetchCount int  `yaml:"post_fetch_count"`
}
