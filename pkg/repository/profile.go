package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"gopkg.in/yaml.v3"
)

// ProfileFile keeps the profile as a flat YAML mapping, e.g.
//
//	name: Alex
//	goal: run a marathon
//
// Key order in the file is preserved.
type ProfileFile struct {
	path string
	mu   sync.Mutex
}

// NewProfileFile creates a profile store for the YAML file at path
func NewProfileFile(path string) *ProfileFile {
	return &ProfileFile{path: path}
}

func (p *ProfileFile) GetProfile(ctx context.Context) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read()
}

func (p *ProfileFile) PutFact(ctx context.Context, fact model.ProfileFact) error {
	if fact.Key == "" {
		return goerr.New("profile key is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	profile, err := p.read()
	if err != nil {
		return err
	}
	profile.Set(fact.Key, fact.Value)

	return p.write(profile)
}

func (p *ProfileFile) read() (*model.Profile, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return &model.Profile{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read profile file", goerr.V("path", p.path))
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile file", goerr.V("path", p.path))
	}

	profile := &model.Profile{}
	if len(node.Content) == 0 {
		return profile, nil
	}

	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, goerr.New("profile file must be a mapping", goerr.V("path", p.path))
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		profile.Set(root.Content[i].Value, root.Content[i+1].Value)
	}

	return profile, nil
}

func (p *ProfileFile) write(profile *model.Profile) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range profile.Facts {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Value},
		)
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal profile")
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create profile directory", goerr.V("path", p.path))
	}
	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write profile file", goerr.V("path", p.path))
	}

	return nil
}

// ProfileMemory is an in-process ProfileStore
type ProfileMemory struct {
	mu      sync.RWMutex
	profile model.Profile
}

// NewProfileMemory creates a profile store seeded with facts
func NewProfileMemory(facts ...model.ProfileFact) *ProfileMemory {
	p := &ProfileMemory{}
	for _, f := range facts {
		p.profile.Set(f.Key, f.Value)
	}
	return p
}

func (p *ProfileMemory) GetProfile(ctx context.Context) (*model.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	facts := make([]model.ProfileFact, len(p.profile.Facts))
	copy(facts, p.profile.Facts)
	return &model.Profile{Facts: facts}, nil
}

func (p *ProfileMemory) PutFact(ctx context.Context, fact model.ProfileFact) error {
	if fact.Key == "" {
		return goerr.New("profile key is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile.Set(fact.Key, fact.Value)
	return nil
}
