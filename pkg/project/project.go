package project

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/pseudomuto/scmdb/pkg/config"
	"github.com/pseudomuto/scmdb/pkg/consts"
	"github.com/pseudomuto/scmdb/pkg/credentials"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed embed/scmdb.yaml
	defaultConfig []byte

	//go:embed embed/gitignore
	defaultGitignore []byte

	image = fstest.MapFS{
		"scripts":            {Mode: os.ModeDir | consts.ModeDir},
		"scripts/.gitignore": {Data: defaultGitignore},
		"scmdb.yaml":         {Data: defaultConfig},
	}
)

type (
	// InitOptions contains options for project initialization.
	InitOptions struct {
		// Owner is written to the new configuration file when set
		Owner string

		// LogDriver replaces the default sqlite script log when set
		LogDriver string

		// LogDSN is written along with LogDriver
		LogDSN string
	}

	// Project is an scmdb project directory.
	Project struct {
		root string
	}
)

// New creates a Project rooted at path, which must be an existing directory.
func New(path string) *Project {
	return &Project{root: path}
}

// Root returns the project directory.
func (p *Project) Root() string {
	return p.root
}

// ConfigPath returns the path of the project's scmdb.yaml.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.root, consts.DefaultConfigFile)
}

// Initialize creates the missing project files and returns the paths it
// created, relative to the project root.
func (p *Project) Initialize(options InitOptions) ([]string, error) {
	if options.Owner != "" && !credentials.IsValidConnectionString(options.Owner) {
		return nil, errors.Wrap(credentials.ErrMalformedCredentials, "invalid owner")
	}

	if err := p.ensureDirectory(); err != nil {
		return nil, err
	}

	// directories before the files inside them
	paths := make([]string, 0, len(image))
	for path := range image {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var created []string
	for _, path := range paths {
		entry := image[path]
		fullPath := filepath.Join(p.root, path)

		if _, err := os.Stat(fullPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to stat %s", fullPath)
		}

		if entry.Mode.IsDir() {
			if err := os.MkdirAll(fullPath, entry.Mode.Perm()); err != nil {
				return nil, errors.Wrapf(err, "failed to create directory %s", fullPath)
			}
		} else {
			data := entry.Data
			if path == consts.DefaultConfigFile {
				var err error
				if data, err = configFor(options); err != nil {
					return nil, err
				}
			}

			if err := os.WriteFile(fullPath, data, consts.ModeFile); err != nil {
				return nil, errors.Wrapf(err, "failed to write file %s", fullPath)
			}
		}

		created = append(created, path)
	}

	return created, nil
}

func (p *Project) ensureDirectory() error {
	dir, err := os.Stat(p.root)
	if err != nil {
		return errors.Wrapf(err, "failed to stat dir: %s", p.root)
	}

	if !dir.IsDir() {
		return errors.Errorf("%s is not a directory", p.root)
	}

	return nil
}

// configFor returns the commented template unless options change it, in
// which case the template is decoded, updated and encoded again.
func configFor(options InitOptions) ([]byte, error) {
	if options.Owner == "" && options.LogDriver == "" {
		return defaultConfig, nil
	}

	var cfg config.Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config template")
	}

	if options.Owner != "" {
		cfg.Owner = options.Owner
	}
	if options.LogDriver != "" {
		cfg.Log.Driver = options.LogDriver
		cfg.Log.DSN = options.LogDSN
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write config")
	}

	return data, nil
}
