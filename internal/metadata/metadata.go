// Package metadata loads the build metadata describing the test run being
// archived, as produced by the external test harness, and flattens it into
// the keyword set driving all template expansions.
package metadata

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/testresultlog/gitarchive/internal/archive"
	"github.com/testresultlog/gitarchive/internal/errors"
)

const envPrefix = "GITARCHIVE"

// Metadata mirrors the document written by the test harness: the host the
// run executed on, the metadata layer revision the build was made from, and
// the machine the tests targeted.
type Metadata struct {
	Hostname string `yaml:"hostname"`
	Layers   struct {
		Meta struct {
			Branch      string     `yaml:"branch"`
			Commit      string     `yaml:"commit"`
			CommitCount flexScalar `yaml:"commit_count"`
		} `yaml:"meta"`
	} `yaml:"layers"`
	Config struct {
		Machine string `yaml:"MACHINE"`
	} `yaml:"config"`
}

// flexScalar accepts both quoted and bare scalars, since harnesses disagree
// on whether a commit count is a string or a number.
type flexScalar string

func (f *flexScalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("expected scalar, got %v", node.Kind)
	}
	*f = flexScalar(node.Value)
	return nil
}

// Default returns metadata for a run with no harness-provided document,
// with the hostname resolved locally and every other field unknown.
func Default() *Metadata {
	m := &Metadata{}
	if hostname, err := os.Hostname(); err == nil {
		m.Hostname = hostname
	} else {
		m.Hostname = "unknown"
	}
	m.Layers.Meta.Branch = "unknown"
	m.Layers.Meta.Commit = "unknown"
	m.Layers.Meta.CommitCount = "0"
	m.Config.Machine = "unknown"
	return m
}

// Load reads a metadata document from path. Environment variables with the
// GITARCHIVE_ prefix (GITARCHIVE_HOSTNAME, GITARCHIVE_MACHINE, ...) override
// individual fields afterwards.
func Load(fs afero.Fs, path string) (*Metadata, error) {
	m := Default()

	if path != "" {
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.NewConfigError("metadata", path,
				errors.Wrap(err, "failed to read metadata file"))
		}
		if err := yaml.Unmarshal(raw, m); err != nil {
			return nil, errors.NewConfigError("metadata", path,
				errors.Wrap(err, "failed to parse metadata file"))
		}
	}

	m.applyEnvironment()
	return m, nil
}

// applyEnvironment overlays GITARCHIVE_* environment variables.
func (m *Metadata) applyEnvironment() {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if s := v.GetString("hostname"); s != "" {
		m.Hostname = s
	}
	if s := v.GetString("branch"); s != "" {
		m.Layers.Meta.Branch = s
	}
	if s := v.GetString("commit"); s != "" {
		m.Layers.Meta.Commit = s
	}
	if s := v.GetString("commit_count"); s != "" {
		m.Layers.Meta.CommitCount = flexScalar(s)
	}
	if s := v.GetString("machine"); s != "" {
		m.Config.Machine = s
	}
}

// Keywords flattens the metadata into the per-run keyword set.
func (m *Metadata) Keywords() archive.Keywords {
	return archive.Keywords{
		archive.KeywordHostname:    m.Hostname,
		archive.KeywordBranch:      m.Layers.Meta.Branch,
		archive.KeywordCommit:      m.Layers.Meta.Commit,
		archive.KeywordCommitCount: string(m.Layers.Meta.CommitCount),
		archive.KeywordMachine:     m.Config.Machine,
	}
}
