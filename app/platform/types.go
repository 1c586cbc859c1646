package platform

// Platform describes one supported social platform: identification, API
// endpoints, payload requirements, and how to turn a platform post id into a
// public URL.
type Platform struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	APIBase string `yaml:"api_base"`

	// PostURLTemplate contains an {id} placeholder. An empty template means
	// the platform already returns an absolute URL as the post identifier.
	PostURLTemplate string `yaml:"post_url_template"`

	RequiresImage bool `yaml:"requires_image"`
	RequiresTitle bool `yaml:"requires_title"`

	// TokenURL is the OAuth endpoint used to refresh an expired access token.
	TokenURL string `yaml:"token_url"`
}

// catalogFile is the on-disk shape of a platform catalog document
type catalogFile struct {
	Platforms []Platform `yaml:"platforms"`
}
